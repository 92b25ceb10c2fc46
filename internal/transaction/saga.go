package transaction

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// step is one named write in a lifecycle operation. translate maps the raw failure to the
// error reported to the caller; nil keeps the raw error.
type step struct {
	name      string
	run       func(ctx context.Context) error
	translate func(err error) error
}

// StepError reports which step of an operation failed.
type StepError struct {
	Operation string
	Step      string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %s: %v", e.Operation, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// runSteps executes steps in order and stops at the first failure. It runs inside a
// UnitOfWork, so the rollback undoes the steps that already succeeded.
func runSteps(ctx context.Context, logger *zap.Logger, operation string, steps ...step) error {
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			logger.Warn("Lifecycle step failed",
				zap.String("operation", operation),
				zap.String("step", s.name),
				zap.Error(err),
			)
			if s.translate != nil {
				err = s.translate(err)
			}
			return &StepError{Operation: operation, Step: s.name, Err: err}
		}
	}
	return nil
}
