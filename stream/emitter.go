package stream

import (
	"errors"
	"log/slog"

	"github.com/novaguard/novaguard"
	"github.com/novaguard/novaguard/event"
	"github.com/novaguard/novaguard/workflow"
)

// stepLabels maps surfaced step names to the progress text the UI shows.
var stepLabels = map[string]string{
	"classify": "Understanding your request…",
	"intake":   "Reading the prescription…",
	"audit":    "Checking patient history…",
	"lookup":   "Consulting FDA safety data…",
	"verdict":  "Preparing the safety verdict…",
	"respond":  "Composing the clinical answer…",
}

// fallbackLabel is used for step names without a mapping. Unknown names
// are not an error; internal renames must not break clients.
const fallbackLabel = "Processing…"

// genericErrorMessage is shown when a failure carries no user-safe text.
const genericErrorMessage = "The request could not be completed. Please try again."

// ErrTerminalSent reports an attempt to emit past the terminal event.
var ErrTerminalSent = errors.New("stream: terminal event already emitted")

// Emitter bridges executor deltas to the public event vocabulary. It
// filters internal bookkeeping steps, attaches progress labels, and
// guarantees exactly one terminal event per run.
//
// An Emitter belongs to a single run and is not safe for concurrent use.
type Emitter struct {
	out      func(event.Event) error
	log      *slog.Logger
	terminal bool
}

// NewEmitter creates an emitter writing through out, typically
// (*Writer).Write. A nil log falls back to slog.Default.
func NewEmitter(out func(event.Event) error, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{out: out, log: log}
}

// LabelFor returns the progress label for a step name.
func LabelFor(step string) string {
	if l, ok := stepLabels[step]; ok {
		return l
	}
	return fallbackLabel
}

// Sink adapts the emitter to the executor's delta-sink contract: one
// progress event per surfaced step, nothing for internal steps.
func (em *Emitter) Sink() workflow.Sink {
	return func(d workflow.Delta) error {
		if workflow.IsInternal(d.Step) {
			em.log.Debug("suppressing internal step", "step", d.Step)
			return nil
		}
		if em.terminal {
			return ErrTerminalSent
		}
		return em.out(event.Event{
			Type:  event.Progress,
			Node:  d.Step,
			Label: LabelFor(d.Step),
		})
	}
}

// Complete emits the single terminal success event carrying status and
// the caller-relevant subset of final state.
func (em *Emitter) Complete(status string, fields map[string]any) error {
	if em.terminal {
		return ErrTerminalSent
	}
	em.terminal = true
	return em.out(event.Event{
		Type:   event.Complete,
		Status: status,
		Fields: fields,
	})
}

// Fail emits the single terminal error event. The message is user-safe:
// it comes from a novaguard.UserError in the chain or falls back to a
// generic text. The raw error only appears in the diagnostic detail.
func (em *Emitter) Fail(err error) error {
	if em.terminal {
		return ErrTerminalSent
	}
	em.terminal = true

	msg, ok := novaguard.UserMessage(err)
	if !ok {
		msg = genericErrorMessage
	}
	detail := ""
	var stepErr *workflow.StepError
	if errors.As(err, &stepErr) {
		detail = "step " + stepErr.Step + " failed"
	}
	em.log.Error("run failed", "error", err)

	return em.out(event.Event{
		Type:    event.Error,
		Message: msg,
		Detail:  detail,
	})
}

// Terminal reports whether the terminal event has been emitted.
func (em *Emitter) Terminal() bool {
	return em.terminal
}
