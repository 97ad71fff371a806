package util

import (
	"context"
	"os"
	"syscall"

	"github.com/bacalhau-project/tiercache/pkg/system"
)

type contextKey struct {
	name string
}

var SystemManagerKey = contextKey{name: "context key for storing the system manager"}

// ShutdownSignals stop long running commands such as serve.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// GetCleanupManager returns the cleanup manager the root command stored in
// ctx. Commands run outside the root command get a fresh one.
func GetCleanupManager(ctx context.Context) *system.CleanupManager {
	if cm, ok := ctx.Value(SystemManagerKey).(*system.CleanupManager); ok {
		return cm
	}
	return system.NewCleanupManager()
}
