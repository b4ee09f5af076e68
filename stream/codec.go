// Package stream carries a run's domain events across one long-lived HTTP
// response. Frames are SSE-style data lines: a "data: " prefix, the JSON
// event, and a blank-line boundary. JSON strings escape raw newlines, so
// the boundary can never appear inside a payload and each frame is
// self-delimiting regardless of how the byte stream is chunked.
package stream

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/novaguard/novaguard/event"
)

const (
	framePrefix = "data: "
	boundary    = "\n\n"
)

// Encode serializes one event into a wire frame.
func Encode(e event.Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(framePrefix)+len(payload)+len(boundary))
	buf = append(buf, framePrefix...)
	buf = append(buf, payload...)
	buf = append(buf, boundary...)
	return buf, nil
}

// Decode extracts complete frames from buf and returns them with the
// unconsumed remainder. The fragment after the last boundary is always
// the remainder, complete-looking or not; when buf ends exactly on a
// boundary that fragment is empty, so a perfectly aligned chunk decodes
// in full immediately.
//
// A complete fragment that fails the prefix check or JSON parse is
// dropped with a diagnostic rather than raised: a producer bug must not
// kill the consumer loop.
func Decode(buf []byte) ([]event.Event, []byte) {
	parts := bytes.Split(buf, []byte(boundary))
	remainder := parts[len(parts)-1]

	var events []event.Event
	for _, part := range parts[:len(parts)-1] {
		if len(part) == 0 {
			continue
		}
		if !bytes.HasPrefix(part, []byte(framePrefix)) {
			slog.Warn("stream: dropping frame without prefix", "frame", string(part))
			continue
		}
		var e event.Event
		if err := json.Unmarshal(part[len(framePrefix):], &e); err != nil {
			slog.Warn("stream: dropping malformed frame", "error", err, "frame", string(part))
			continue
		}
		events = append(events, e)
	}
	return events, remainder
}
