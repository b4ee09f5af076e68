// Package client consumes the prescription stream endpoint: it posts a
// request, reads the response body chunk by chunk, and dispatches typed
// events as frames complete. Authentication is an explicit per-call
// value; there is deliberately no package-level credential state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrTruncated is returned when the connection ended before a terminal
// event arrived. Callers should treat it as a connection problem, not as
// a received error event.
var ErrTruncated = errors.New("client: stream ended without terminal event")

// Config holds connection settings for the streaming API.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8000".
	BaseURL string

	// AuthToken, when set, is sent as a bearer token. Passed explicitly
	// on every call rather than held in mutable shared state.
	AuthToken string

	// HTTPClient overrides http.DefaultClient, mainly for tests.
	HTTPClient *http.Client
}

// Request is the prescription-processing request body.
type Request struct {
	SessionID string `json:"sessionId,omitempty"`
	PatientID int64  `json:"patientId"`
	Text      string `json:"text"`
}

const readChunkSize = 4096

// Stream posts req and consumes the event stream until the terminal
// event or the connection ends, dispatching to cb along the way. It
// returns nil once a terminal event was dispatched, ErrTruncated if the
// stream ended early, and the transport error otherwise.
func Stream(ctx context.Context, cfg Config, req Request, cb Callbacks) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("client: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/prescriptions/stream", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if cfg.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.AuthToken)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("client: server returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	decoder := NewDecoder(cb)
	defer decoder.Close()

	chunk := make([]byte, readChunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			decoder.OnBytes(chunk[:n])
		}
		if err != nil {
			if err != io.EOF {
				return fmt.Errorf("client: reading stream: %w", err)
			}
			break
		}
	}

	if !decoder.Terminal() {
		return ErrTruncated
	}
	return nil
}
