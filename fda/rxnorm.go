package fda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultRxNormBaseURL is the RxNav REST root.
const DefaultRxNormBaseURL = "https://rxnav.nlm.nih.gov/REST"

const rxnormCacheTTL = 30 * time.Minute

// Normalized is the RxNorm resolution of a free-text drug name.
type Normalized struct {
	RxCUI         string `json:"rxcui"`
	InputName     string `json:"inputName"`
	PreferredName string `json:"preferredName"`
	TTY           string `json:"tty"`
}

// preferredTTYs in priority order: clinical drug, branded drug, brand
// name, ingredient, precise ingredient.
var preferredTTYs = []string{"SCD", "SBD", "BN", "IN", "PIN"}

// RxNorm normalizes drug names through the RxNav API.
type RxNorm struct {
	baseURL string
	http    *http.Client
	cache   *gocache.Cache
	log     *slog.Logger
}

// RxNormOption configures the client.
type RxNormOption func(*RxNorm)

// WithRxNormBaseURL overrides the API root, mainly for tests.
func WithRxNormBaseURL(u string) RxNormOption {
	return func(c *RxNorm) { c.baseURL = u }
}

// NewRxNorm creates an RxNorm client.
func NewRxNorm(opts ...RxNormOption) *RxNorm {
	c := &RxNorm{
		baseURL: DefaultRxNormBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   gocache.New(rxnormCacheTTL, cacheSweepEvery),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize resolves a drug name to its RxNorm concept. Misspellings and
// brand names resolve to the same concept as the generic, which keeps
// cache keys and label lookups consistent. Returns nil when RxNorm has
// no match; that is not an error, the raw name is still usable.
func (c *RxNorm) Normalize(ctx context.Context, drugName string) (*Normalized, error) {
	key := strings.ToLower(strings.TrimSpace(drugName))
	if cached, ok := c.cache.Get(key); ok {
		return cached.(*Normalized), nil
	}

	u := fmt.Sprintf("%s/drugs.json?name=%s", c.baseURL, url.QueryEscape(drugName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fda: rxnorm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fda: rxnorm request returned %d", resp.StatusCode)
	}

	var payload struct {
		DrugGroup struct {
			ConceptGroup []struct {
				TTY               string `json:"tty"`
				ConceptProperties []struct {
					RxCUI string `json:"rxcui"`
					Name  string `json:"name"`
					TTY   string `json:"tty"`
				} `json:"conceptProperties"`
			} `json:"conceptGroup"`
		} `json:"drugGroup"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fda: decoding rxnorm response: %w", err)
	}

	groups := payload.DrugGroup.ConceptGroup
	for _, tty := range preferredTTYs {
		for _, g := range groups {
			if g.TTY != tty || len(g.ConceptProperties) == 0 {
				continue
			}
			p := g.ConceptProperties[0]
			n := &Normalized{
				RxCUI:         p.RxCUI,
				InputName:     drugName,
				PreferredName: p.Name,
				TTY:           p.TTY,
			}
			c.cache.Set(key, n, gocache.DefaultExpiration)
			return n, nil
		}
	}

	// Fall back to any concept at all before giving up.
	for _, g := range groups {
		if len(g.ConceptProperties) > 0 {
			p := g.ConceptProperties[0]
			n := &Normalized{
				RxCUI:         p.RxCUI,
				InputName:     drugName,
				PreferredName: p.Name,
				TTY:           p.TTY,
			}
			c.cache.Set(key, n, gocache.DefaultExpiration)
			return n, nil
		}
	}

	c.log.Debug("rxnorm: no match", "drug", drugName)
	return nil, nil
}
