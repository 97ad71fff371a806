package system

import (
	"context"
	"errors"
	"time"

	sync "github.com/bacalhau-project/golang-mutex-tracer"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

type cleanupCallback struct {
	name string
	fn   func() error
}

// CleanupManager collects the release functions of the resources a process
// opens and runs them on shutdown, most recently registered first, so that a
// component is closed before the resources it depends on.
type CleanupManager struct {
	fnsMutex sync.Mutex
	fns      []cleanupCallback
	fnsDone  bool
}

// NewCleanupManager returns a new CleanupManager instance.
func NewCleanupManager() *CleanupManager {
	c := &CleanupManager{}
	c.fnsMutex.EnableTracerWithOpts(sync.Opts{
		Threshold: 10 * time.Millisecond,
		Id:        "CleanupManager.fnsMutex",
	})
	return c
}

// RegisterCallback registers a clean-up function under name, which is only
// used in logs.
func (cm *CleanupManager) RegisterCallback(name string, fn func() error) {
	cm.fnsMutex.Lock()
	defer cm.fnsMutex.Unlock()

	if cm.fnsDone {
		log.Error().Str("callback", name).Msg("CleanupManager: RegisterCallback called after Cleanup")
		return
	}

	cm.fns = append(cm.fns, cleanupCallback{name: name, fn: fn})
}

// Cleanup runs the registered functions in reverse order and returns their
// combined errors. Cancellation errors are ignored. Calls after the first are
// no-ops.
func (cm *CleanupManager) Cleanup(ctx context.Context) error {
	cm.fnsMutex.Lock()
	defer cm.fnsMutex.Unlock()

	if cm.fnsDone {
		log.Ctx(ctx).Warn().Msg("CleanupManager: Cleanup called again after already called")
		return nil
	}
	cm.fnsDone = true

	var errs *multierror.Error
	for i := len(cm.fns) - 1; i >= 0; i-- {
		cb := cm.fns[i]
		if err := cb.fn(); err != nil && !errors.Is(err, context.Canceled) {
			log.Ctx(ctx).Error().Err(err).Str("callback", cb.name).Msg("Error during clean-up callback")
			errs = multierror.Append(errs, err)
			continue
		}
		log.Ctx(ctx).Debug().Str("callback", cb.name).Msg("cleaned up")
	}
	return errs.ErrorOrNil()
}
