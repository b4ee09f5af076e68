// Package workflow implements a strictly sequential executor over an
// ordered list of named steps. Each executed step appends exactly one
// delta to the run's append-only State; the delta is handed to a
// registered sink before the next step runs, so a consumer observes
// progress in step-completion order with no buffering between steps.
package workflow

import "context"

// Condition decides from prior state whether a node runs. Nodes whose
// condition returns false are skipped silently: no delta, no event.
type Condition func(s *State) bool

// Sink receives each executed step's delta before the next step starts.
// A sink error aborts the run; the executor treats it as a lost consumer,
// not as a step failure.
type Sink func(Delta) error

// Node pairs a step with an optional run condition.
type Node struct {
	Step Step
	When Condition
}

// Always wraps a step as an unconditional node.
func Always(step Step) Node {
	return Node{Step: step}
}

// When wraps a step with a run condition.
func When(step Step, cond Condition) Node {
	return Node{Step: step, When: cond}
}

// Pipeline is an ordered sequence of nodes executed one at a time.
type Pipeline struct {
	name  string
	nodes []Node
}

// New creates a pipeline with the given nodes, in execution order.
func New(name string, nodes ...Node) *Pipeline {
	return &Pipeline{name: name, nodes: nodes}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Run executes the pipeline against s, strictly sequentially. For each
// node whose condition holds, the step runs, its fields are appended to
// s under the step's name, and the delta goes to sink before the next
// node is considered.
//
// On step failure Run stops immediately and returns a *StepError; later
// steps do not execute and s keeps only the deltas recorded so far. On
// sink failure Run returns an *AbortError. Context cancellation between
// steps surfaces as a *StepError wrapping ctx.Err().
//
// Run must only be given values that are safe for the full duration of
// the run; steps must not capture request-scoped handles.
func (p *Pipeline) Run(ctx context.Context, s *State, sink Sink) error {
	for _, n := range p.nodes {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: n.Step.Name(), Err: err}
		}
		if n.When != nil && !n.When(s) {
			continue
		}

		name := n.Step.Name()
		fields, err := n.Step.Run(ctx, s)
		if err != nil {
			return &StepError{Step: name, Err: err}
		}
		if fields == nil {
			fields = Fields{}
		}
		if err := s.set(name, fields); err != nil {
			return err
		}
		if sink != nil {
			if err := sink(Delta{Step: name, Fields: fields}); err != nil {
				return &AbortError{Step: name, Err: err}
			}
		}
	}
	return nil
}
