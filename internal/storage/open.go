package storage

import "fmt"

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open returns the backend named by backend. dataDir is only used by the
// SQLite backend; ":memory:" keeps it in process memory.
func Open(backend, dataDir string) (Repository, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(dataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
