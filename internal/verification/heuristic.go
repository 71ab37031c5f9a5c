package verification

import (
	"fmt"
	"strings"

	"github.com/Em-Deesha/profverify/internal/domain"
)

// Heuristic point values.
const (
	scholarCountsPoints   = 50
	scholarTextPoints     = 30
	wikipediaPoints       = 20
	researchLinkPoints    = 5
	researchLinkCap       = 20
	publicationPoints     = 30
	morePublicationPoints = 10
	researchAreaPoints    = 10

	HeuristicPrefix      = "Heuristic result (no AI key). "
	HeuristicLikely      = "Likely professor based on research activity."
	HeuristicLimited     = "Limited evidence of research activity."
	heuristicPartsJoiner = " | "
)

// HeuristicInput is everything the fallback scorer looks at.
type HeuristicInput struct {
	PublicationCount int
	ResearchArea     string
	ScholarText      string
	WikipediaText    string
	Links            []string
}

// ScoreHeuristic is the deterministic fallback used when no model verdict
// is available. verified is derived from the clamped score.
func ScoreHeuristic(in HeuristicInput) domain.Verdict {
	score := 0
	if in.ScholarText != "" {
		if domain.ContainsFold(in.ScholarText, "papers:") || domain.ContainsFold(in.ScholarText, "publications:") {
			score += scholarCountsPoints
		} else {
			score += scholarTextPoints
		}
	}
	if in.WikipediaText != "" {
		score += wikipediaPoints
	}

	researchLinks := domain.CountResearchLinks(in.Links)
	score += min(researchLinkCap, researchLinks*researchLinkPoints)

	bonus := 0
	if in.PublicationCount > 0 {
		bonus += publicationPoints
		if in.PublicationCount >= 2 {
			bonus += morePublicationPoints
		}
	}
	if in.ResearchArea != "" {
		bonus += researchAreaPoints
	}

	score = domain.ClampScore(score + bonus)
	verified := domain.IsVerifiedScore(score)

	return domain.Verdict{
		Verified:        verified,
		ConfidenceScore: score,
		Summary:         heuristicSummary(in, researchLinks, verified),
		Source:          domain.VerdictFromHeuristic,
	}
}

func heuristicSummary(in HeuristicInput, researchLinks int, verified bool) string {
	var parts []string
	if in.PublicationCount > 0 {
		parts = append(parts, fmt.Sprintf("Found %d publication(s) in profile", in.PublicationCount))
	}
	if in.ResearchArea != "" {
		parts = append(parts, "Research area: "+in.ResearchArea)
	}
	if researchLinks > 0 {
		parts = append(parts, fmt.Sprintf("Found %d research-related evidence links", researchLinks))
	}
	if in.ScholarText != "" {
		parts = append(parts, "Semantic Scholar author profile found")
	}

	summary := HeuristicPrefix
	if len(parts) > 0 {
		summary += strings.Join(parts, heuristicPartsJoiner) + ". "
	}
	if verified {
		return summary + HeuristicLikely
	}
	return summary + HeuristicLimited
}
