// Package evidence implements the external evidence sources consulted during
// verification: the Wikipedia page summary API, the Semantic Scholar graph
// API and the DuckDuckGo HTML search page.
package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/logging"
	"github.com/Em-Deesha/profverify/internal/ports"
)

const (
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent is sent on every request; some sources reject blank agents.
	DefaultUserAgent = "Mozilla/5.0"

	maxErrorBody = 512
)

// Options configures a fetcher. Zero values select defaults.
type Options struct {
	// BaseURL replaces the public endpoint. Tests point this at httptest.
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// httpSource holds the pieces every fetcher shares.
type httpSource struct {
	source    domain.EvidenceSource
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    logging.Logger
}

func newHTTPSource(source domain.EvidenceSource, opts Options) httpSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return httpSource{
		source:    source,
		client:    client,
		timeout:   timeout,
		userAgent: ua,
		logger:    logging.OrNop(opts.Logger),
	}
}

// Source implements ports.EvidenceFetcher.
func (h httpSource) Source() domain.EvidenceSource { return h.source }

// do sends req under the per-call timeout and hands a 200 response body to
// consume. Any other status becomes a ports.FetchError; throttling and
// server errors wrap ports.ErrServiceUnavailable.
func (h httpSource) do(ctx context.Context, req *http.Request, consume func(io.Reader) error) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return ports.NewFetchError(string(h.source), 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := ports.ErrUnexpectedStatus
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			cause = ports.ErrServiceUnavailable
		}
		return ports.NewFetchError(string(h.source), resp.StatusCode, fmt.Errorf("%w: %s", cause, body))
	}

	if err := consume(resp.Body); err != nil {
		return ports.NewFetchError(string(h.source), 0, fmt.Errorf("%w: %v", ports.ErrInvalidResponse, err))
	}
	return nil
}

// getJSON issues a GET and decodes the JSON body into out.
func (h httpSource) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return h.do(ctx, req, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(out)
	})
}
