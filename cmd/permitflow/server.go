package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/permitflow/internal/api"
	"github.com/kalambet/permitflow/internal/config"
	"github.com/kalambet/permitflow/internal/events"
	"github.com/kalambet/permitflow/internal/intake"
	"github.com/kalambet/permitflow/internal/metrics"
	"github.com/kalambet/permitflow/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the permitflow server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show permitflow server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.NopPublisher{}, nil
	}
	return events.ConnectNATS(cfg.NATSURL, cfg.SubjectPrefix,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
}

func runServer() error {
	// stdout belongs to the MCP transport when it is enabled.
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)

	if cfg.Server.APIToken == "" {
		slog.Warn("PERMITFLOW_API_TOKEN is not set, write routes accept unauthenticated requests")
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()
	slog.Info("storage opened", "backend", cfg.Storage.Backend, "data_dir", cfg.Storage.DataDir)

	collector := metrics.New()

	pub, err := newPublisher(cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			slog.Warn("closing event publisher", "error", err)
		}
	}()
	if cfg.Events.NATSURL != "" {
		slog.Info("publishing events", "url", cfg.Events.NATSURL, "subject", events.Subject(cfg.Events.SubjectPrefix))
	}
	dispatcher := events.NewDispatcher(pub, cfg.Events.QueueSize, collector)

	svc := intake.New(intake.Deps{
		Store:    store,
		Notifier: dispatcher,
		Metrics:  collector,
		Logger:   logger,
	})

	handler := api.NewAppHandler(api.AppDeps{
		Service: svc,
		Token:   cfg.Server.APIToken,
		Metrics: collector.Handler(),
		Logger:  logger,
	})

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr(), err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The dispatcher outlives the HTTP server so events from in-flight
	// requests are still flushed.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(dispatchCtx)
	}()

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "permitflow listening on %s\n", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.MCP.Stdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Service: svc, Version: version})
		g.Go(func() error {
			err := server.NewStdioServer(mcpSrv).Listen(gctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	err = g.Wait()
	stopDispatch()
	<-dispatchDone
	return err
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}
	client.httpClient.Timeout = 2 * time.Second

	resp, err := client.get(ctx, "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped (%s)", client.baseURL)
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running at %s", client.baseURL)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Storage", "%s (%s)", cfg.Storage.Backend, cfg.Storage.DataDir)
	if cfg.Events.NATSURL != "" {
		printStatus("Events", "%s on %s", cfg.Events.NATSURL, events.Subject(cfg.Events.SubjectPrefix))
	} else {
		printStatus("Events", "disabled")
	}
	if cfg.Server.APIToken == "" {
		printStatus("Auth", "disabled (PERMITFLOW_API_TOKEN not set)")
	} else {
		printStatus("Auth", "bearer token")
	}

	if running {
		var projects []storage.Project
		if r, err := client.get(ctx, "/projects"); err == nil && decodeJSON(r, &projects) == nil {
			printStatus("Projects", "%d", len(projects))
		}
		var qs []storage.Questionnaire
		if r, err := client.get(ctx, "/questionnaires"); err == nil && decodeJSON(r, &qs) == nil {
			printStatus("Questionnaires", "%d", len(qs))
		}
	}
	return nil
}
