package workflow

import (
	"context"
	"strings"
)

// InternalPrefix marks bookkeeping steps. Their deltas still land in
// State but must never surface in the public event vocabulary.
const InternalPrefix = "_"

// IsInternal reports whether a step name is reserved for bookkeeping.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, InternalPrefix)
}

// Step is a single unit of pipeline work. Run receives the accumulated
// state read-only and returns the fields to record under the step's own
// name; it must not hold references into state after returning.
type Step interface {
	Name() string
	Run(ctx context.Context, s *State) (Fields, error)
}

// FuncStep wraps a function as a Step.
type FuncStep struct {
	name string
	fn   func(ctx context.Context, s *State) (Fields, error)
}

// NewFuncStep creates a step from a function.
func NewFuncStep(name string, fn func(ctx context.Context, s *State) (Fields, error)) *FuncStep {
	return &FuncStep{name: name, fn: fn}
}

// Name returns the step name.
func (f *FuncStep) Name() string { return f.name }

// Run executes the function.
func (f *FuncStep) Run(ctx context.Context, s *State) (Fields, error) {
	return f.fn(ctx, s)
}
