package verification

import (
	"strings"

	"github.com/Em-Deesha/profverify/internal/domain"
)

const (
	maxContextKeywords     = 5
	maxContextPublications = 5
	noEvidence             = "[none]"
	notAvailable           = "N/A"
)

// CompiledContext is the text shown to the model plus every evidence link
// gathered for the request, deduplicated in discovery order.
type CompiledContext struct {
	Text  string
	Links []string
}

// CompileContext merges the request, the optional stored profile and the
// fetched evidence. Links are merged Wikipedia first, then Semantic Scholar,
// then DuckDuckGo; only the first domain.MaxContextLinks appear in Text.
func CompileContext(
	req domain.VerificationRequest,
	profile *domain.ProfileRecord,
	wiki, scholar domain.EvidenceBundle,
	webLinks []string,
) CompiledContext {
	links := domain.MergeLinks(wiki.Links, scholar.Links, webLinks)

	var b strings.Builder
	b.WriteString("Name: " + req.Name + "\n")
	b.WriteString("University: " + req.University + "\n")
	if profile != nil {
		writeProfile(&b, req, profile)
	}

	b.WriteString("\nWikipedia:\n")
	b.WriteString(orNone(wiki.Text))
	b.WriteString("\n\nSemantic Scholar (Research Publications):\n")
	b.WriteString(orNone(scholar.Text))
	b.WriteString("\n\nTop Evidence Links:\n")
	b.WriteString(strings.Join(domain.FirstN(links, domain.MaxContextLinks), "\n"))

	return CompiledContext{Text: b.String(), Links: links}
}

func writeProfile(b *strings.Builder, req domain.VerificationRequest, p *domain.ProfileRecord) {
	b.WriteString("\nExisting Profile in Database:\n")
	b.WriteString("Name: " + or(p.Name, req.Name) + "\n")
	b.WriteString("University: " + or(p.University, req.University) + "\n")
	b.WriteString("Department: " + or(p.Department, notAvailable) + "\n")
	b.WriteString("Research Area: " + or(p.ResearchArea, notAvailable) + "\n")
	b.WriteString("Title: " + or(p.Title, notAvailable) + "\n")

	if len(p.Keywords) > 0 {
		kw := p.Keywords[:min(len(p.Keywords), maxContextKeywords)]
		b.WriteString("Keywords: " + strings.Join(kw, ", ") + "\n")
	}

	if len(p.Publications) == 0 {
		return
	}
	b.WriteString("\nPublications from Profile:\n")
	for _, pub := range p.Publications[:min(len(p.Publications), maxContextPublications)] {
		b.WriteString(publicationLine(pub) + "\n")
	}
	b.WriteString("\n")
}

// publicationLine renders "- Title (Year) - Journal | Authors: ..." leaving
// out missing parts. Free-form entries print as-is.
func publicationLine(p domain.Publication) string {
	if p.Text != "" && p.Title == "" && p.Year == "" && p.Journal == "" && p.Authors == "" {
		return "- " + p.Text
	}

	line := "- " + or(p.Title, notAvailable)
	if p.Year != "" && p.Year != notAvailable {
		line += " (" + p.Year + ")"
	}
	if p.Journal != "" {
		line += " - " + p.Journal
	}
	if p.Authors != "" {
		line += " | Authors: " + p.Authors
	}
	return line
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func orNone(s string) string { return or(s, noEvidence) }
