package evidence

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

const (
	// SemanticScholarAPIURL is the graph API root.
	SemanticScholarAPIURL = "https://api.semanticscholar.org/graph/v1"
	// SemanticScholarWebURL prefixes author and paper evidence links.
	SemanticScholarWebURL = "https://www.semanticscholar.org"

	authorSearchLimit    = 10
	authorFields         = "name,affiliations,url,paperCount,hIndex,citationCount,authorId"
	paperFetchLimit      = 5
	paperFields          = "title,year,venue,paperId"
	papersPerAuthor      = 3
	semanticScholarBurst = 1 + authorSearchLimit
)

// SemanticScholar searches authors and lists a few papers for each hit.
type SemanticScholar struct {
	httpSource
	apiURL  string
	webURL  string
	limiter *rate.Limiter
}

var _ ports.ScholarFetcher = (*SemanticScholar)(nil)

// NewSemanticScholar creates the fetcher. requestsPerSecond paces calls
// across all verifications sharing the fetcher; zero disables pacing. The
// burst covers one search plus its paper lookups.
func NewSemanticScholar(opts Options, requestsPerSecond float64) *SemanticScholar {
	api := opts.BaseURL
	if api == "" {
		api = SemanticScholarAPIURL
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &SemanticScholar{
		httpSource: newHTTPSource(domain.SourceSemanticScholar, opts),
		apiURL:     strings.TrimRight(api, "/"),
		webURL:     SemanticScholarWebURL,
		limiter:    rate.NewLimiter(limit, semanticScholarBurst),
	}
}

type s2Author struct {
	AuthorID      string   `json:"authorId"`
	Name          string   `json:"name"`
	Affiliations  []string `json:"affiliations"`
	URL           string   `json:"url"`
	PaperCount    int      `json:"paperCount"`
	HIndex        int      `json:"hIndex"`
	CitationCount int      `json:"citationCount"`
}

type s2Paper struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	Year    int    `json:"year"`
	Venue   string `json:"venue"`
}

type s2Page[T any] struct {
	Data []T `json:"data"`
}

// SearchAuthors queries "<name> [researchArea] [university]". With a
// research area, authors whose affiliations mention it come first, then by
// paper count. Each author contributes one text line, up to three paper
// lines and the profile, paper and homepage links.
func (s *SemanticScholar) SearchAuthors(ctx context.Context, name, researchArea, university string) (domain.EvidenceBundle, error) {
	query := strings.Join(slices.DeleteFunc([]string{name, researchArea, university},
		func(p string) bool { return p == "" }), " ")

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(authorSearchLimit))
	params.Set("fields", authorFields)

	var page s2Page[s2Author]
	if err := s.get(ctx, s.apiURL+"/author/search?"+params.Encode(), &page); err != nil {
		return domain.EmptyEvidence(), err
	}

	authors := page.Data
	if researchArea != "" {
		rankByArea(authors, researchArea)
	}
	if len(authors) > authorSearchLimit {
		authors = authors[:authorSearchLimit]
	}

	var lines []string
	links := []string{}
	for _, a := range authors {
		if a.Name != "" {
			lines = append(lines, authorLine(a))
		}

		if a.AuthorID != "" {
			links = append(links, s.webURL+"/author/"+a.AuthorID)
			papers, err := s.papers(ctx, a.AuthorID)
			if err != nil {
				s.logger.Debug("semantic scholar papers for author %s: %v", a.AuthorID, err)
			}
			for _, p := range papers {
				if p.PaperID == "" {
					continue
				}
				links = append(links, s.webURL+"/paper/"+p.PaperID)
				if p.Title != "" {
					lines = append(lines, paperLine(p))
				}
			}
		}

		if a.URL != "" {
			links = append(links, a.URL)
		}
	}

	return domain.EvidenceBundle{Text: strings.Join(lines, "\n"), Links: links}, nil
}

// papers returns the first papersPerAuthor of the author's listed papers.
func (s *SemanticScholar) papers(ctx context.Context, authorID string) ([]s2Paper, error) {
	params := url.Values{}
	params.Set("fields", paperFields)
	params.Set("limit", strconv.Itoa(paperFetchLimit))

	var page s2Page[s2Paper]
	endpoint := fmt.Sprintf("%s/author/%s/papers?%s", s.apiURL, url.PathEscape(authorID), params.Encode())
	if err := s.get(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	if len(page.Data) > papersPerAuthor {
		return page.Data[:papersPerAuthor], nil
	}
	return page.Data, nil
}

// get waits for the limiter and fetches endpoint. The per-call timeout also
// bounds the wait for a token.
func (s *SemanticScholar) get(ctx context.Context, endpoint string, out any) error {
	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.limiter.Wait(wctx); err != nil {
		return ports.NewFetchError(string(s.source), 0, err)
	}
	return s.getJSON(ctx, endpoint, out)
}

// rankByArea stable-sorts authors: affiliation mentions area first, then
// more papers first.
func rankByArea(authors []s2Author, area string) {
	matches := func(a s2Author) bool {
		return domain.ContainsFold(strings.Join(a.Affiliations, " "), area)
	}
	slices.SortStableFunc(authors, func(a, b s2Author) int {
		am, bm := matches(a), matches(b)
		if am != bm {
			if am {
				return -1
			}
			return 1
		}
		return b.PaperCount - a.PaperCount
	})
}

func authorLine(a s2Author) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Author: %s | Affiliations: %s", a.Name, strings.Join(a.Affiliations, ", "))
	if a.PaperCount > 0 {
		fmt.Fprintf(&b, " | Publications: %d", a.PaperCount)
	}
	if a.HIndex > 0 {
		fmt.Fprintf(&b, " | h-index: %d", a.HIndex)
	}
	if a.CitationCount > 0 {
		fmt.Fprintf(&b, " | Citations: %d", a.CitationCount)
	}
	return b.String()
}

func paperLine(p s2Paper) string {
	line := "Paper: " + p.Title
	if p.Year != 0 {
		line += fmt.Sprintf(" (%d)", p.Year)
	}
	if p.Venue != "" {
		line += " " + p.Venue
	}
	return strings.TrimSpace(line)
}
