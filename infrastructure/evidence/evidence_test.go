package evidence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

// TestWikipedia_FetchSummary verifies the title encoding, User-Agent and
// field extraction.
func TestWikipedia_FetchSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Jane Doe State University", r.URL.Path)
		assert.Equal(t, "/Jane%20Doe%20State%20University", r.URL.EscapedPath())
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"title": "Jane Doe",
			"extract": "Jane Doe is a professor of physics.",
			"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Jane_Doe"}}
		}`)
	}))
	defer server.Close()

	wiki := NewWikipedia(Options{BaseURL: server.URL})
	assert.Equal(t, domain.SourceWikipedia, wiki.Source())

	bundle, err := wiki.FetchSummary(context.Background(), "Jane Doe", "State University")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe is a professor of physics.", bundle.Text)
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Jane_Doe"}, bundle.Links)
}

// TestWikipedia_NoUniversity verifies an empty university is dropped from
// the page title.
func TestWikipedia_NoUniversity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Jane Doe", r.URL.Path)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	bundle, err := NewWikipedia(Options{BaseURL: server.URL}).FetchSummary(context.Background(), "Jane Doe", "")
	require.NoError(t, err)
	assert.Empty(t, bundle.Text)
	assert.NotNil(t, bundle.Links)
	assert.Empty(t, bundle.Links)
}

// TestWikipedia_Errors verifies bad statuses and malformed bodies surface as
// FetchErrors with empty evidence.
func TestWikipedia_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		bundle, err := NewWikipedia(Options{BaseURL: server.URL}).FetchSummary(context.Background(), "x", "y")
		require.Error(t, err)
		var fe *ports.FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, http.StatusNotFound, fe.StatusCode)
		assert.ErrorIs(t, err, ports.ErrUnexpectedStatus)
		assert.Equal(t, domain.EmptyEvidence(), bundle)
	})

	t.Run("malformed json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"extract": `)
		}))
		defer server.Close()

		_, err := NewWikipedia(Options{BaseURL: server.URL}).FetchSummary(context.Background(), "x", "y")
		assert.ErrorIs(t, err, ports.ErrInvalidResponse)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		start := time.Now()
		_, err := NewWikipedia(Options{BaseURL: server.URL, Timeout: 20 * time.Millisecond}).
			FetchSummary(context.Background(), "x", "y")
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}

// scholarServer serves an author search plus per-author paper lists.
func scholarServer(t *testing.T, authorsJSON string, papers map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var paperCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/author/search":
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			assert.Equal(t, authorFields, r.URL.Query().Get("fields"))
			fmt.Fprint(w, authorsJSON)
		case strings.HasSuffix(r.URL.Path, "/papers"):
			paperCalls.Add(1)
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/author/"), "/papers")
			body, ok := papers[id]
			if !ok {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, body)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	return server, &paperCalls
}

// TestSemanticScholar_SearchAuthors verifies text lines, link order and the
// three-paper cap.
func TestSemanticScholar_SearchAuthors(t *testing.T) {
	server, paperCalls := scholarServer(t, `{"data": [
		{"authorId": "1", "name": "Jane Doe", "affiliations": ["State University", "CERN"],
		 "url": "https://janedoe.example.com", "paperCount": 12, "hIndex": 5, "citationCount": 300},
		{"authorId": "", "name": "J. Doe", "affiliations": []}
	]}`, map[string]string{
		"1": `{"data": [
			{"paperId": "p1", "title": "Dark Matter", "year": 2021, "venue": "PRL"},
			{"paperId": "", "title": "No Id"},
			{"paperId": "p3", "title": "", "year": 2019},
			{"paperId": "p4", "title": "Fourth", "year": 2018}
		]}`,
	})
	defer server.Close()

	s2 := NewSemanticScholar(Options{BaseURL: server.URL}, 0)
	bundle, err := s2.SearchAuthors(context.Background(), "Jane Doe", "", "State University")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"Author: Jane Doe | Affiliations: State University, CERN | Publications: 12 | h-index: 5 | Citations: 300",
		"Paper: Dark Matter (2021) PRL",
		"Author: J. Doe | Affiliations: ",
	}, "\n"), bundle.Text)

	assert.Equal(t, []string{
		"https://www.semanticscholar.org/author/1",
		"https://www.semanticscholar.org/paper/p1",
		"https://www.semanticscholar.org/paper/p3",
		"https://janedoe.example.com",
	}, bundle.Links)
	assert.Equal(t, int32(1), paperCalls.Load())
}

// TestSemanticScholar_QueryAndRanking verifies the query composition and that
// a research area reorders authors by affiliation match, then paper count.
func TestSemanticScholar_QueryAndRanking(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/author/search" {
			gotQuery = r.URL.Query().Get("query")
			fmt.Fprint(w, `{"data": [
				{"name": "A", "affiliations": ["Dept of History"], "paperCount": 50},
				{"name": "B", "affiliations": ["Robotics Institute"], "paperCount": 3},
				{"name": "C", "affiliations": ["ROBOTICS lab"], "paperCount": 9},
				{"name": "D", "affiliations": null, "paperCount": 80}
			]}`)
			return
		}
		t.Errorf("unexpected path %s", r.URL.Path)
	}))
	defer server.Close()

	bundle, err := NewSemanticScholar(Options{BaseURL: server.URL}, 0).
		SearchAuthors(context.Background(), "Jane Doe", "Robotics", "")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe Robotics", gotQuery)

	var order []string
	for _, line := range strings.Split(bundle.Text, "\n") {
		order = append(order, strings.TrimPrefix(strings.SplitN(line, " |", 2)[0], "Author: "))
	}
	assert.Equal(t, []string{"C", "B", "D", "A"}, order)
	assert.Empty(t, bundle.Links)
}

// TestSemanticScholar_PaperFailureIsTolerated verifies a failing paper
// lookup keeps the author line and profile link.
func TestSemanticScholar_PaperFailureIsTolerated(t *testing.T) {
	server, _ := scholarServer(t, `{"data": [{"authorId": "9", "name": "Jane Doe", "affiliations": ["MIT"]}]}`, nil)
	defer server.Close()

	bundle, err := NewSemanticScholar(Options{BaseURL: server.URL}, 0).
		SearchAuthors(context.Background(), "Jane Doe", "", "MIT")
	require.NoError(t, err)
	assert.Equal(t, "Author: Jane Doe | Affiliations: MIT", bundle.Text)
	assert.Equal(t, []string{"https://www.semanticscholar.org/author/9"}, bundle.Links)
}

// TestSemanticScholar_SearchFailure verifies a failed search is an error.
func TestSemanticScholar_SearchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	bundle, err := NewSemanticScholar(Options{BaseURL: server.URL}, 0).
		SearchAuthors(context.Background(), "Jane Doe", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrServiceUnavailable)
	assert.Equal(t, domain.EmptyEvidence(), bundle)
}

// TestSemanticScholar_LimiterWaitIsBounded verifies a request that would
// wait longer than the per-call timeout for a token fails fast without
// reaching the API.
func TestSemanticScholar_LimiterWaitIsBounded(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		ctx     func() (context.Context, context.CancelFunc)
	}{
		{
			name:    "per-call timeout",
			timeout: 50 * time.Millisecond,
			ctx:     func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
		},
		{
			name:    "caller deadline shorter than timeout",
			timeout: time.Minute,
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 50*time.Millisecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				fmt.Fprint(w, `{"data": []}`)
			}))
			defer server.Close()

			s := NewSemanticScholar(Options{BaseURL: server.URL, Timeout: tt.timeout}, 0.001)
			s.limiter.ReserveN(time.Now(), semanticScholarBurst)

			ctx, cancel := tt.ctx()
			defer cancel()

			start := time.Now()
			var page s2Page[s2Author]
			err := s.get(ctx, server.URL+"/author/search", &page)
			require.Error(t, err)
			assert.Less(t, time.Since(start), 5*time.Second)
			assert.Zero(t, hits.Load())

			var fe *ports.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, string(domain.SourceSemanticScholar), fe.Source)
		})
	}
}

const ddgHTML = `<html><body>
<div class="result"><a class="result__a" href="https://news.example.com/jane">News</a></div>
<div class="result"><a class="result__a" href="https://arxiv.org/abs/2101.00001">arXiv</a></div>
<div class="result"><a class="result__a" href="/l/?uddg=relative">Relative</a></div>
<div class="result"><a class="result__a" href="https://state.edu/~jane">Homepage</a></div>
<div class="result"><a class="result__snippet" href="https://ignored.example.com">Snippet</a></div>
<div class="result"><a class="result__a" href="https://scholar.google.com/citations?user=x">Scholar</a></div>
<div class="result"><a class="result__a">No href</a></div>
</body></html>`

// TestDuckDuckGo_Search verifies the form POST, selector filtering and the
// research-first stable ordering.
func TestDuckDuckGo_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Jane Doe research publications papers research publications", r.PostForm.Get("q"))
		fmt.Fprint(w, ddgHTML)
	}))
	defer server.Close()

	ddg := NewDuckDuckGo(Options{BaseURL: server.URL})
	links, err := ddg.Search(context.Background(), "Jane Doe research publications papers", true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://arxiv.org/abs/2101.00001",
		"https://scholar.google.com/citations?user=x",
		"https://news.example.com/jane",
		"https://state.edu/~jane",
	}, links)
}

// TestDuckDuckGo_CapsResults verifies at most ten links are returned.
func TestDuckDuckGo_CapsResults(t *testing.T) {
	var b strings.Builder
	for i := range 15 {
		fmt.Fprintf(&b, `<a class="result__a" href="https://site%d.example.com">r</a>`, i)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "plain query", r.PostForm.Get("q"))
		fmt.Fprint(w, b.String())
	}))
	defer server.Close()

	links, err := NewDuckDuckGo(Options{BaseURL: server.URL}).Search(context.Background(), "plain query", false)
	require.NoError(t, err)
	assert.Len(t, links, domain.MaxResultLinks)
	assert.Equal(t, "https://site0.example.com", links[0])
}

// TestDuckDuckGo_Failure verifies a bad status returns an empty, non-nil list.
func TestDuckDuckGo_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	links, err := NewDuckDuckGo(Options{BaseURL: server.URL}).Search(context.Background(), "q", true)
	require.Error(t, err)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}
