package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/novaguard/novaguard/event"
	"github.com/novaguard/novaguard/workflow"
)

// ErrStreamingUnsupported is returned when the response writer cannot
// flush incrementally.
var ErrStreamingUnsupported = errors.New("stream: response writer does not support flushing")

// Writer frames events onto one outbound HTTP response. Each event is
// encoded, written, and flushed immediately so progress is visible as it
// happens; nothing is batched. The writer is bound to a single request's
// lifetime.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for streaming: event-stream content type, caching
// disabled, and proxy buffering off. It fails if w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// Write encodes one event and flushes the frame. A write error means the
// client is gone; callers must stop producing.
func (t *Writer) Write(e event.Event) error {
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(frame); err != nil {
		return err
	}
	t.flusher.Flush()
	return nil
}

// Finisher derives the terminal complete event's payload from the final
// run state: the status plus the caller-relevant fields.
type Finisher func(s *workflow.State) (status string, fields map[string]any)

// Run drives one pipeline run onto one streaming response: a progress
// frame per surfaced step, then exactly one terminal frame, after which
// the response ends regardless of outcome.
//
// Run accepts only already-resolved values. Anything scoped to the
// surrounding handler call (database rows, auth handles) must have been
// copied into s or the pipeline's inputs before Run is called; the
// streaming phase never dereferences a scope-bound resource.
//
// If a frame write fails the client has disconnected: the executor
// aborts, no further steps run, and the error is returned without any
// attempt to deliver a terminal event.
func Run(ctx context.Context, w http.ResponseWriter, p *workflow.Pipeline, s *workflow.State, finish Finisher, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	tw, err := NewWriter(w)
	if err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return err
	}
	em := NewEmitter(tw.Write, log)

	if err := p.Run(ctx, s, em.Sink()); err != nil {
		var abort *workflow.AbortError
		if errors.As(err, &abort) {
			log.Warn("client disconnected mid-run", "step", abort.Step, "error", abort.Err)
			return err
		}
		if ferr := em.Fail(err); ferr != nil {
			log.Warn("failed to deliver error event", "error", ferr)
		}
		return err
	}

	status, fields := finish(s)
	if err := em.Complete(status, fields); err != nil {
		log.Warn("failed to deliver complete event", "error", err)
		return err
	}
	return nil
}
