// Package fda looks up drug safety data from the OpenFDA label API and
// normalizes drug names through RxNorm. Lookups are cached in memory:
// labels rarely change, and the audit path hits the same drugs over and
// over during a session.
package fda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/novaguard/novaguard"
)

// DefaultBaseURL is the OpenFDA drug label endpoint.
const DefaultBaseURL = "https://api.fda.gov/drug/label.json"

// ErrLabelNotFound is returned when OpenFDA has no label for a drug.
var ErrLabelNotFound = errors.New("fda: no label found")

const (
	labelCacheTTL   = time.Hour
	cacheSweepEvery = 30 * time.Minute
	snippetLimit    = 200
	requestTimeout  = 30 * time.Second
	fallbackSource  = "https://open.fda.gov/"
)

// Label is one raw OpenFDA drug label record.
type Label map[string]any

// Field extracts a label section, joining the array form OpenFDA uses.
func (l Label) Field(name string) string {
	switch v := l[name].(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// Citation builds a DailyMed URL from the label's SPL set ID, falling
// back to the OpenFDA landing page.
func (l Label) Citation() string {
	openfda, _ := l["openfda"].(map[string]any)
	if ids, ok := openfda["spl_set_id"].([]any); ok && len(ids) > 0 {
		if id, ok := ids[0].(string); ok && id != "" {
			return "https://dailymed.nlm.nih.gov/dailymed/drugInfo.cfm?setid=" + id
		}
	}
	return fallbackSource
}

// Client queries the OpenFDA drug label API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *gocache.Cache
	log     *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates an OpenFDA client. The API key is optional; without
// one OpenFDA applies its anonymous rate limit.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
		cache:   gocache.New(labelCacheTTL, cacheSweepEvery),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DrugLabel fetches the first label matching the drug's brand or generic
// name. Successful lookups are cached; misses are not, so a drug newly
// added to OpenFDA becomes visible without waiting out the TTL.
func (c *Client) DrugLabel(ctx context.Context, drugName string) (Label, error) {
	key := strings.ToLower(strings.TrimSpace(drugName))
	if cached, ok := c.cache.Get(key); ok {
		c.log.Debug("label cache hit", "drug", key)
		return cached.(Label), nil
	}

	q := url.Values{}
	q.Set("search", fmt.Sprintf("openfda.brand_name:%q OR openfda.generic_name:%q", drugName, drugName))
	q.Set("limit", "1")
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fda: label request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrLabelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fda: label request returned %d", resp.StatusCode)
	}

	var payload struct {
		Results []Label `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fda: decoding label response: %w", err)
	}
	if len(payload.Results) == 0 {
		return nil, ErrLabelNotFound
	}

	label := payload.Results[0]
	c.cache.Set(key, label, gocache.DefaultExpiration)
	return label, nil
}

// RunAllChecks fetches the drug's label and evaluates every safety check
// against the patient snapshot. A missing label produces a single info
// flag rather than an error: the audit can still conclude from history.
func (c *Client) RunAllChecks(ctx context.Context, drugName string, profile novaguard.PatientProfile) ([]novaguard.SafetyFlag, error) {
	label, err := c.DrugLabel(ctx, drugName)
	if errors.Is(err, ErrLabelNotFound) {
		return []novaguard.SafetyFlag{{
			Severity: novaguard.SeverityInfo,
			Category: "no_label",
			Message:  fmt.Sprintf("No official FDA label found for %q", drugName),
			Source:   "OpenFDA",
		}}, nil
	}
	if err != nil {
		return nil, err
	}
	return Checks(label, profile), nil
}

// Checks evaluates the label sections against the patient snapshot.
func Checks(label Label, profile novaguard.PatientProfile) []novaguard.SafetyFlag {
	citation := label.Citation()
	var flags []novaguard.SafetyFlag

	add := func(severity novaguard.FlagSeverity, category, text string) {
		flags = append(flags, novaguard.SafetyFlag{
			Severity: severity,
			Category: category,
			Message:  text,
			Source:   "OpenFDA",
			Citation: citation,
		})
	}

	if s := label.Field("boxed_warning"); s != "" {
		add(novaguard.SeverityCritical, "boxed_warning", "BLACK BOX WARNING: "+snippet(s))
	}
	if s := label.Field("contraindications"); s != "" {
		add(novaguard.SeverityCritical, "contraindication", "CONTRAINDICATION: "+snippet(s))
	}
	if s := label.Field("drug_interactions"); s != "" {
		add(novaguard.SeverityWarning, "drug_interaction", "DRUG INTERACTIONS: "+snippet(s))
	}
	if profile.IsPregnant {
		if s := label.Field("pregnancy"); s != "" {
			add(novaguard.SeverityCritical, "pregnancy", "PREGNANCY: "+snippet(s))
		}
	}
	if profile.IsNursing {
		if s := label.Field("nursing_mothers"); s != "" {
			add(novaguard.SeverityWarning, "nursing", "NURSING MOTHERS: "+snippet(s))
		}
	}
	if profile.AgeYears >= 65 {
		if s := label.Field("geriatric_use"); s != "" {
			add(novaguard.SeverityWarning, "geriatric_use", "GERIATRIC USE: "+snippet(s))
		}
	}
	if profile.AgeYears > 0 && profile.AgeYears < 18 {
		if s := label.Field("pediatric_use"); s != "" {
			add(novaguard.SeverityWarning, "pediatric_use", "PEDIATRIC USE: "+snippet(s))
		}
	}
	// eGFR below 60 means reduced renal clearance; surface any renal
	// dosing guidance the label carries.
	if profile.EGFR > 0 && profile.EGFR < 60 {
		if s := label.Field("dosage_and_administration"); strings.Contains(strings.ToLower(s), "renal") {
			add(novaguard.SeverityWarning, "renal_dosing", "RENAL DOSING: "+snippet(s))
		}
	}

	return flags
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= snippetLimit {
		return s
	}
	return s[:snippetLimit] + "..."
}
