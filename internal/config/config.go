package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Events  EventsConfig
	Log     LogConfig
	MCP     MCPConfig
}

type ServerConfig struct {
	Host     string
	Port     int
	MaxConns int
	APIToken string
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type StorageConfig struct {
	Backend string
	DataDir string
}

type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
	QueueSize     int
}

type LogConfig struct {
	Level string
}

type MCPConfig struct {
	Stdio bool
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     3333,
			MaxConns: 256,
		},
		Storage: StorageConfig{
			Backend: "memory",
			DataDir: ":memory:",
		},
		Events: EventsConfig{
			SubjectPrefix: "permitflow",
			QueueSize:     64,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the TOML file at
// $XDG_CONFIG_HOME/permitflow/config.toml, then applies environment
// variables (PERMITFLOW_*, plus PORT and HOST) on top.
func Load() (Config, error) {
	return loadFromPath(configFilePath())
}

func loadFromPath(path string) (Config, error) {
	b, err := openFileBackend(path)
	if err != nil {
		return Config{}, err
	}
	return loadWith(b)
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d is out of range", c.Server.Port)
	}
	if c.Server.MaxConns < 0 {
		return fmt.Errorf("invalid config: server.max_conns must not be negative")
	}
	switch c.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid config: storage.backend %q (want memory or sqlite)", c.Storage.Backend)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: log.level %q", c.Log.Level)
	}
	return nil
}
