package fda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rxnormServer(t *testing.T, hits *int, groups []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		assert.Equal(t, "/drugs.json", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("name"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"drugGroup": map[string]any{"conceptGroup": groups},
		})
	}))
}

func concept(tty, rxcui, name string) map[string]any {
	return map[string]any{
		"tty": tty,
		"conceptProperties": []any{
			map[string]any{"rxcui": rxcui, "name": name, "tty": tty},
		},
	}
}

func TestNormalizePrefersClinicalDrug(t *testing.T) {
	srv := rxnormServer(t, nil, []map[string]any{
		concept("BN", "202421", "Coumadin"),
		concept("SCD", "855332", "warfarin sodium 5 MG Oral Tablet"),
	})
	defer srv.Close()

	c := NewRxNorm(WithRxNormBaseURL(srv.URL))
	n, err := c.Normalize(context.Background(), "coumadin")
	require.NoError(t, err)
	require.NotNil(t, n)

	// SCD outranks BN regardless of response order.
	assert.Equal(t, "SCD", n.TTY)
	assert.Equal(t, "855332", n.RxCUI)
	assert.Equal(t, "warfarin sodium 5 MG Oral Tablet", n.PreferredName)
	assert.Equal(t, "coumadin", n.InputName)
}

func TestNormalizeFallsBackToAnyConcept(t *testing.T) {
	srv := rxnormServer(t, nil, []map[string]any{
		concept("SY", "12345", "some synonym"),
	})
	defer srv.Close()

	c := NewRxNorm(WithRxNormBaseURL(srv.URL))
	n, err := c.Normalize(context.Background(), "whatever")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "SY", n.TTY)
}

func TestNormalizeNoMatch(t *testing.T) {
	srv := rxnormServer(t, nil, nil)
	defer srv.Close()

	c := NewRxNorm(WithRxNormBaseURL(srv.URL))
	n, err := c.Normalize(context.Background(), "notadrug")
	require.NoError(t, err)
	assert.Nil(t, n, "no match is not an error")
}

func TestNormalizeCaches(t *testing.T) {
	var hits int
	srv := rxnormServer(t, &hits, []map[string]any{
		concept("IN", "11289", "warfarin"),
	})
	defer srv.Close()

	c := NewRxNorm(WithRxNormBaseURL(srv.URL))
	ctx := context.Background()

	_, err := c.Normalize(ctx, "Warfarin")
	require.NoError(t, err)
	_, err = c.Normalize(ctx, " warfarin")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}
