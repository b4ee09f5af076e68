package client

import (
	"log/slog"

	"github.com/novaguard/novaguard/event"
	"github.com/novaguard/novaguard/stream"
)

// Callbacks receive decoded events by discriminant. Nil entries are
// skipped; events are still consumed so the terminal accounting holds.
type Callbacks struct {
	OnProgress func(node, label string)
	OnComplete func(status string, fields map[string]any)
	OnError    func(message, detail string)
}

// Decoder reconstructs discrete events from an arbitrarily chunked byte
// stream. It owns a growable buffer; each OnBytes call appends the chunk,
// extracts every complete frame, and dispatches. A frame boundary may
// fall anywhere inside a chunk; the remainder carries partial frames
// across calls until a later chunk completes them.
//
// A Decoder consumes exactly one stream and runs on whatever goroutine
// delivers the reads, strictly sequentially.
type Decoder struct {
	cb       Callbacks
	buf      []byte
	terminal bool
	log      *slog.Logger
}

// NewDecoder creates a decoder dispatching to cb.
func NewDecoder(cb Callbacks) *Decoder {
	return &Decoder{cb: cb, log: slog.Default()}
}

// OnBytes feeds one inbound chunk. Complete frames are dispatched in
// order; any trailing partial frame stays buffered.
func (d *Decoder) OnBytes(chunk []byte) {
	d.buf = append(d.buf, chunk...)
	events, remainder := stream.Decode(d.buf)
	d.buf = append(d.buf[:0], remainder...)

	for _, e := range events {
		d.dispatch(e)
	}
}

// dispatch routes one event. Nothing is delivered after a terminal event:
// exactly one of complete/error ends the callback sequence.
func (d *Decoder) dispatch(e event.Event) {
	if d.terminal {
		d.log.Warn("client: dropping event after terminal", "type", string(e.Type))
		return
	}

	switch e.Type {
	case event.Progress:
		if d.cb.OnProgress != nil {
			d.cb.OnProgress(e.Node, e.Label)
		}
	case event.Complete:
		d.terminal = true
		if d.cb.OnComplete != nil {
			d.cb.OnComplete(e.Status, e.Fields)
		}
	case event.Error:
		d.terminal = true
		if d.cb.OnError != nil {
			d.cb.OnError(e.Message, e.Detail)
		}
	}
}

// Close marks the end of the stream. Leftover bytes that never became a
// frame are stream truncation: discarded with a diagnostic, not parsed
// and not reported as an error event.
func (d *Decoder) Close() {
	if len(d.buf) > 0 {
		d.log.Warn("client: discarding truncated frame at stream end", "bytes", len(d.buf))
		d.buf = nil
	}
}

// Terminal reports whether a terminal event has been dispatched.
func (d *Decoder) Terminal() bool {
	return d.terminal
}
