package evidence

import (
	"context"
	"net/url"
	"strings"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

// WikipediaBaseURL is the REST page summary endpoint.
const WikipediaBaseURL = "https://en.wikipedia.org/api/rest_v1/page/summary"

// Wikipedia fetches a page summary titled "<name> <university>".
type Wikipedia struct {
	httpSource
	baseURL string
}

var _ ports.WikipediaFetcher = (*Wikipedia)(nil)

// NewWikipedia creates a Wikipedia fetcher.
func NewWikipedia(opts Options) *Wikipedia {
	base := opts.BaseURL
	if base == "" {
		base = WikipediaBaseURL
	}
	return &Wikipedia{
		httpSource: newHTTPSource(domain.SourceWikipedia, opts),
		baseURL:    strings.TrimRight(base, "/"),
	}
}

type wikipediaSummary struct {
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// FetchSummary returns the page extract as text and the desktop page URL as
// the only link. An empty university is left out of the title.
func (w *Wikipedia) FetchSummary(ctx context.Context, name, university string) (domain.EvidenceBundle, error) {
	title := strings.TrimSpace(name + " " + university)
	if title == "" {
		return domain.EmptyEvidence(), nil
	}

	var summary wikipediaSummary
	if err := w.getJSON(ctx, w.baseURL+"/"+url.PathEscape(title), &summary); err != nil {
		return domain.EmptyEvidence(), err
	}

	bundle := domain.EvidenceBundle{Text: summary.Extract, Links: []string{}}
	if page := summary.ContentURLs.Desktop.Page; page != "" {
		bundle.Links = append(bundle.Links, page)
	}
	return bundle, nil
}
