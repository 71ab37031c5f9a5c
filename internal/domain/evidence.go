package domain

// EvidenceSource names an external evidence provider.
type EvidenceSource string

// Known evidence sources.
const (
	SourceWikipedia       EvidenceSource = "wikipedia"
	SourceSemanticScholar EvidenceSource = "semantic_scholar"
	SourceDuckDuckGo      EvidenceSource = "duckduckgo"
)

// EvidenceBundle is what a single fetcher produces: free text plus the URLs
// that back it, in discovery order.
type EvidenceBundle struct {
	Text  string   `json:"text"`
	Links []string `json:"links"`
}

// EmptyEvidence is the value a fetcher degrades to on any failure.
func EmptyEvidence() EvidenceBundle {
	return EvidenceBundle{Links: []string{}}
}

// HasText reports whether the bundle carries any text.
func (b EvidenceBundle) HasText() bool { return b.Text != "" }

// MergeLinks concatenates the lists in order, skipping empty strings and
// URLs already seen. The first occurrence of a URL wins.
func MergeLinks(lists ...[]string) []string {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	seen := make(map[string]struct{}, total)
	merged := make([]string, 0, total)
	for _, l := range lists {
		for _, link := range l {
			if link == "" {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			merged = append(merged, link)
		}
	}
	return merged
}

// FirstN returns at most n leading links. The result is never nil.
func FirstN(links []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(links) < n {
		n = len(links)
	}
	out := make([]string, n)
	copy(out, links[:n])
	return out
}

// CountResearchLinks returns how many links point at a research site.
func CountResearchLinks(links []string) int {
	n := 0
	for _, link := range links {
		if IsResearchLink(link) {
			n++
		}
	}
	return n
}

// PrioritizeResearchLinks returns the research links followed by the rest,
// keeping the original relative order inside each group.
func PrioritizeResearchLinks(links []string) []string {
	out := make([]string, 0, len(links))
	var rest []string
	for _, link := range links {
		if IsResearchLink(link) {
			out = append(out, link)
		} else {
			rest = append(rest, link)
		}
	}
	return append(out, rest...)
}
