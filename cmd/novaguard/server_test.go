package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaguard/novaguard/client"
	"github.com/novaguard/novaguard/fda"
	"github.com/novaguard/novaguard/pipeline"
	"github.com/novaguard/novaguard/provider"
	"github.com/novaguard/novaguard/store"
)

func testServer(t *testing.T, chat provider.Chat, authToken string) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	fdaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{map[string]any{
			"boxed_warning": []any{"Serious bleeding risk."},
		}}})
	}))
	t.Cleanup(fdaSrv.Close)

	deps := pipeline.Deps{
		Chat: chat,
		FDA:  fda.NewClient("", fda.WithBaseURL(fdaSrv.URL)),
		Log:  slog.Default(),
	}
	return NewServer(st, deps, authToken, slog.Default()), st
}

func auditChat() provider.Chat {
	return provider.ChatFunc(func(context.Context, []provider.Message) (string, error) {
		return "AUDIT", nil
	})
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, auditChat(), "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := testServer(t, auditChat(), "sekrit")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	t.Run("health is open", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/patients")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token accepted", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/patients", nil)
		req.Header.Set("Authorization", "Bearer sekrit")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestPatientEndpoints(t *testing.T) {
	srv, _ := testServer(t, auditChat(), "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	body, _ := json.Marshal(store.Patient{Name: "Ada", AgeYears: 36})
	resp, err := http.Post(ts.URL+"/patients", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created store.Patient
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(t, created.ID)

	resp2, err := http.Get(ts.URL + "/patients/999")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestStreamEndpointAuditRun(t *testing.T) {
	srv, st := testServer(t, auditChat(), "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	ctx := context.Background()
	pid, err := st.CreatePatient(ctx, store.Patient{Name: "Ada", AgeYears: 36})
	require.NoError(t, err)

	var progress []string
	var status string
	err = client.Stream(ctx, client.Config{BaseURL: ts.URL}, client.Request{
		PatientID: pid,
		Text:      "warfarin 5mg once daily",
	}, client.Callbacks{
		OnProgress: func(node, label string) { progress = append(progress, node) },
		OnComplete: func(s string, fields map[string]any) { status = s },
		OnError:    func(message, detail string) { t.Fatalf("unexpected error event: %s", message) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"classify", "intake", "audit", "lookup", "verdict"}, progress,
		"internal steps stay off the wire")
	assert.Equal(t, "red", status, "boxed warning forces a red verdict")

	// The run landed in the audit trail.
	entries, err := st.RecentAudits(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "red", entries[0].Status)
	assert.Equal(t, "AUDIT", entries[0].Intent)
}

func TestStreamEndpointUserError(t *testing.T) {
	srv, _ := testServer(t, auditChat(), "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	var msg string
	err := client.Stream(context.Background(), client.Config{BaseURL: ts.URL}, client.Request{
		Text: "warfarin 5mg daily", // audit intent but no patient selected
	}, client.Callbacks{
		OnError: func(m, d string) { msg = m },
	})
	require.NoError(t, err, "a delivered error event is a clean outcome")
	assert.Contains(t, msg, "Select a patient")
}

func TestStreamEndpointRejectsEmptyText(t *testing.T) {
	srv, _ := testServer(t, auditChat(), "")
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/prescriptions/stream", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
