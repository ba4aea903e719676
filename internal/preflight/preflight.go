package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"conveyor/internal/config"
	"conveyor/internal/docstore"
	"conveyor/internal/queue"
)

// Result captures the outcome of one startup check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger is anything whose connectivity can be verified.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore verifies a database-backed store responds to a ping.
func CheckStore(ctx context.Context, name string, store Pinger) Result {
	if store == nil {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := store.Ping(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// Run executes every startup check for the daemon.
func Run(ctx context.Context, cfg *config.Config, broker *queue.Broker, docs *docstore.Store) []Result {
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Object store directory", cfg.Paths.ObjectStoreDir),
	}
	results = append(results, CheckStore(ctx, "Broker database", broker))
	results = append(results, CheckStore(ctx, "Order database", docs))
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
