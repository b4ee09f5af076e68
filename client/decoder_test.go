package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaguard/novaguard/event"
	"github.com/novaguard/novaguard/stream"
)

type recorded struct {
	kind   string
	node   string
	status string
	msg    string
}

func recordingCallbacks(got *[]recorded) Callbacks {
	return Callbacks{
		OnProgress: func(node, label string) {
			*got = append(*got, recorded{kind: "progress", node: node})
		},
		OnComplete: func(status string, fields map[string]any) {
			*got = append(*got, recorded{kind: "complete", status: status})
		},
		OnError: func(message, detail string) {
			*got = append(*got, recorded{kind: "error", msg: message})
		},
	}
}

func frames(t *testing.T, events ...event.Event) []byte {
	t.Helper()
	var buf []byte
	for _, e := range events {
		frame, err := stream.Encode(e)
		require.NoError(t, err)
		buf = append(buf, frame...)
	}
	return buf
}

func TestDecoderDispatchesInOrder(t *testing.T) {
	buf := frames(t,
		event.Event{Type: event.Progress, Node: "classify", Label: "a"},
		event.Event{Type: event.Progress, Node: "audit", Label: "b"},
		event.Event{Type: event.Complete, Status: "green"},
	)

	var got []recorded
	d := NewDecoder(recordingCallbacks(&got))
	d.OnBytes(buf)
	d.Close()

	require.Len(t, got, 3)
	assert.Equal(t, recorded{kind: "progress", node: "classify"}, got[0])
	assert.Equal(t, recorded{kind: "progress", node: "audit"}, got[1])
	assert.Equal(t, recorded{kind: "complete", status: "green"}, got[2])
	assert.True(t, d.Terminal())
}

func TestDecoderBytewiseChunking(t *testing.T) {
	buf := frames(t,
		event.Event{Type: event.Progress, Node: "verdict", Label: "v"},
		event.Event{Type: event.Error, Message: "boom"},
	)

	var got []recorded
	d := NewDecoder(recordingCallbacks(&got))
	for _, b := range buf {
		d.OnBytes([]byte{b})
	}
	d.Close()

	require.Len(t, got, 2)
	assert.Equal(t, "verdict", got[0].node)
	assert.Equal(t, "boom", got[1].msg)
	assert.True(t, d.Terminal())
}

func TestDecoderBoundarySplitAcrossChunks(t *testing.T) {
	buf := frames(t, event.Event{Type: event.Complete, Status: "ok"})

	var got []recorded
	d := NewDecoder(recordingCallbacks(&got))

	// Split in the middle of the two-byte boundary.
	d.OnBytes(buf[:len(buf)-1])
	assert.Empty(t, got, "half a boundary completes nothing")

	d.OnBytes(buf[len(buf)-1:])
	require.Len(t, got, 1)
	assert.Equal(t, "complete", got[0].kind)
}

func TestDecoderDropsEventsAfterTerminal(t *testing.T) {
	buf := frames(t,
		event.Event{Type: event.Error, Message: "boom"},
		event.Event{Type: event.Progress, Node: "late", Label: "l"},
		event.Event{Type: event.Complete, Status: "ok"},
	)

	var got []recorded
	d := NewDecoder(recordingCallbacks(&got))
	d.OnBytes(buf)

	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0].kind)
}

func TestDecoderNilCallbacksStillTrackTerminal(t *testing.T) {
	d := NewDecoder(Callbacks{})
	d.OnBytes(frames(t, event.Event{Type: event.Complete, Status: "ok"}))
	assert.True(t, d.Terminal())
}

func TestDecoderCloseDiscardsTruncatedFrame(t *testing.T) {
	buf := frames(t, event.Event{Type: event.Complete, Status: "ok"})

	var got []recorded
	d := NewDecoder(recordingCallbacks(&got))
	d.OnBytes(buf[:len(buf)-5])
	d.Close()

	assert.Empty(t, got, "truncated frame is never parsed or reported")
	assert.False(t, d.Terminal())
}
