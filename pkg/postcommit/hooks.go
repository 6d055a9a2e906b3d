// Package postcommit runs best-effort side effects after a database write has
// committed. Hook failures are logged and returned as warnings; they never
// change the outcome of the primary operation.
package postcommit

import (
	"context"

	"go.uber.org/multierr"

	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/types"
)

// Hook is a single side effect. Key identifies the affected object in logs
// and warnings.
type Hook struct {
	Name string
	Key  string
	Run  func(ctx context.Context) error
}

// ObjectDeleter is the subset of the storage client used by cleanup hooks.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// DeleteObject builds a hook removing key from the object store.
func DeleteObject(store ObjectDeleter, key string) Hook {
	return Hook{
		Name: "delete_object",
		Key:  key,
		Run: func(ctx context.Context) error {
			return store.Delete(ctx, key)
		},
	}
}

type cleanupRecorder interface {
	IncSuccess()
	IncFailure()
}

// Runner executes hooks in order.
type Runner struct {
	logg    *logger.Logger
	metrics cleanupRecorder
}

func NewRunner(logg *logger.Logger, metrics cleanupRecorder) *Runner {
	return &Runner{logg: logg, metrics: metrics}
}

// Run executes every hook, even after a failure, and reports failures as
// STORAGE_ERROR warnings.
func (r *Runner) Run(ctx context.Context, hooks ...Hook) []types.Warning {
	var (
		warnings []types.Warning
		combined error
	)
	for _, hook := range hooks {
		if hook.Run == nil {
			continue
		}
		err := hook.Run(ctx)
		if err == nil {
			r.record(true)
			continue
		}
		r.record(false)
		combined = multierr.Append(combined, err)
		warnings = append(warnings, types.Warning{
			Code:    string(pkgerrors.CodeStorage),
			Message: err.Error(),
			Key:     hook.Key,
		})
		if r != nil && r.logg != nil {
			logCtx := r.logg.WithFields(ctx, map[string]any{
				"hook":       hook.Name,
				"object_key": hook.Key,
				"error":      err.Error(),
			})
			r.logg.Warn(logCtx, "postcommit.hook_failed")
		}
	}
	if combined != nil && r != nil && r.logg != nil {
		r.logg.Warn(r.logg.WithField(ctx, "failures", len(multierr.Errors(combined))), "postcommit.completed_with_failures")
	}
	return warnings
}

func (r *Runner) record(ok bool) {
	if r == nil || r.metrics == nil {
		return
	}
	if ok {
		r.metrics.IncSuccess()
		return
	}
	r.metrics.IncFailure()
}
