package workflow

import "fmt"

// StepError wraps a failure raised by a step. Execution stops at the
// failing step; no later step runs.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow: step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AbortError wraps a delta-sink failure, typically a transport write
// error after the client disconnected. It is distinct from StepError so
// callers do not convert it into a public error event: there is nobody
// left to deliver one to.
type AbortError struct {
	Step string
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("workflow: aborted after step %q: %v", e.Step, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// DuplicateStepError reports a violation of the append-only state
// contract: two executed steps shared a name.
type DuplicateStepError struct {
	Step string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("workflow: step %q already recorded a delta", e.Step)
}
