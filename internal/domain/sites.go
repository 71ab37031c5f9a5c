package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// researchSites are hostname or path fragments that mark a URL as pointing at
// an academic reference source.
var researchSites = [...]string{
	"scholar",
	"researchgate",
	"arxiv",
	"pubmed",
	"dblp",
	"acm",
	"ieee",
	"semanticscholar",
}

// placeholderUniversityTerms flag university strings that are really job
// titles or form garbage ("Professor of Computer Science", "teacher").
var placeholderUniversityTerms = [...]string{
	"professor",
	"of computer",
	"teacher",
}

// IsResearchLink reports whether link contains any research-site substring,
// ignoring case.
func IsResearchLink(link string) bool {
	folded := Fold(link)
	for _, site := range researchSites {
		if strings.Contains(folded, site) {
			return true
		}
	}
	return false
}

// IsValidUniversity reports whether university is non-empty and free of the
// placeholder terms.
func IsValidUniversity(university string) bool {
	if university == "" {
		return false
	}
	folded := Fold(university)
	for _, term := range placeholderUniversityTerms {
		if strings.Contains(folded, term) {
			return false
		}
	}
	return true
}

// Fold returns the case-folded form of s. A Caser keeps internal state, so a
// fresh one is built per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// MutualContainsFold reports whether either string contains the other,
// ignoring case. An empty string is contained in everything.
func MutualContainsFold(a, b string) bool {
	fa, fb := Fold(a), Fold(b)
	return strings.Contains(fa, fb) || strings.Contains(fb, fa)
}
