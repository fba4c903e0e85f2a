package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step is a single side effect with an optional rollback.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs a sequence of side effects and rolls back completed ones, in
// reverse order, when a later step fails.
type Saga struct {
	name  string
	steps []Step
}

// New creates a new saga with the given name.
func New(name string) *Saga {
	return &Saga{name: name}
}

// AddStep adds a step to the saga.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs all steps sequentially. When a step fails, every previously
// completed step is compensated in reverse order and the step error is
// returned, with any compensation failures joined in.
func (s *Saga) Execute(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			if compErr := s.compensate(ctx, i); compErr != nil {
				return fmt.Errorf("saga %s: step %q failed (%w), compensation also failed: %v", s.name, step.Name, err, compErr)
			}
			return fmt.Errorf("saga %s: step %q failed: %w", s.name, step.Name, err)
		}
	}
	return nil
}

// compensate rolls back steps [0, failed) in reverse order, collecting every
// compensation error.
func (s *Saga) compensate(ctx context.Context, failed int) error {
	var errs []error
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate step %q: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
