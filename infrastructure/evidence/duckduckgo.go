package evidence

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

const (
	// DuckDuckGoURL is the no-JavaScript search endpoint.
	DuckDuckGoURL = "https://duckduckgo.com/html/"

	resultLinkSelector  = "a.result__a"
	researchQuerySuffix = " research publications"
)

// DuckDuckGo scrapes result links from the HTML search page.
type DuckDuckGo struct {
	httpSource
	endpoint string
}

var _ ports.WebSearcher = (*DuckDuckGo)(nil)

// NewDuckDuckGo creates the searcher.
func NewDuckDuckGo(opts Options) *DuckDuckGo {
	endpoint := opts.BaseURL
	if endpoint == "" {
		endpoint = DuckDuckGoURL
	}
	return &DuckDuckGo{
		httpSource: newHTTPSource(domain.SourceDuckDuckGo, opts),
		endpoint:   endpoint,
	}
}

// Search posts query and returns up to domain.MaxResultLinks absolute result
// links, research sites first. prioritizeResearch also appends
// " research publications" to the query.
func (d *DuckDuckGo) Search(ctx context.Context, query string, prioritizeResearch bool) ([]string, error) {
	if prioritizeResearch {
		query += researchQuerySuffix
	}

	form := url.Values{}
	form.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return []string{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var links []string
	err = d.do(ctx, req, func(r io.Reader) error {
		doc, err := goquery.NewDocumentFromReader(r)
		if err != nil {
			return err
		}
		links = resultLinks(doc)
		return nil
	})
	if err != nil {
		return []string{}, err
	}

	return domain.FirstN(domain.PrioritizeResearchLinks(links), domain.MaxResultLinks), nil
}

func resultLinks(doc *goquery.Document) []string {
	var links []string
	doc.Find(resultLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if ok && strings.HasPrefix(href, "http") {
			links = append(links, href)
		}
	})
	return links
}
