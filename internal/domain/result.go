package domain

import (
	"strings"
	"time"
)

// Result shaping constants.
const (
	// VerifiedThreshold is the minimum heuristic score that counts as verified.
	VerifiedThreshold = 60
	// MaxResultLinks caps the evidence links returned to callers.
	MaxResultLinks = 10
	// MaxContextLinks caps the evidence links shown to the model.
	MaxContextLinks = 15
	// MinScore and MaxScore bound every confidence score.
	MinScore = 0
	MaxScore = 100
)

// VerificationRequest identifies the person to verify.
type VerificationRequest struct {
	Name       string `json:"name" yaml:"name" validate:"required"`
	University string `json:"university" yaml:"university" validate:"required"`
}

// Normalize returns a copy with surrounding whitespace removed.
func (r VerificationRequest) Normalize() VerificationRequest {
	return VerificationRequest{
		Name:       strings.TrimSpace(r.Name),
		University: strings.TrimSpace(r.University),
	}
}

// CacheKey is the case-folded identity of a request.
func (r VerificationRequest) CacheKey() string {
	n := r.Normalize()
	return Fold(n.Name) + "|" + Fold(n.University)
}

// VerificationResult is the public outcome of a verification. Field names
// are a wire contract with existing callers.
type VerificationResult struct {
	Verified        bool     `json:"verified"`
	ConfidenceScore int      `json:"confidence_score"`
	EvidenceLinks   []string `json:"evidence_links"`
	Summary         string   `json:"summary"`
}

// NewVerificationResult attaches evidence to a verdict, clamping the score
// and keeping at most MaxResultLinks links.
func NewVerificationResult(v Verdict, links []string) VerificationResult {
	return VerificationResult{
		Verified:        v.Verified,
		ConfidenceScore: ClampScore(v.ConfidenceScore),
		EvidenceLinks:   FirstN(links, MaxResultLinks),
		Summary:         v.Summary,
	}
}

// ClampScore restricts score to [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// HistoryEntry is one recorded verification outcome.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	University string    `json:"university"`
	Verified   bool      `json:"verified"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}
