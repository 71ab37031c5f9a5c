package domain

// VerdictSource records which path produced a verdict.
type VerdictSource string

const (
	// VerdictFromLLM marks a verdict returned by the language model.
	VerdictFromLLM VerdictSource = "llm"
	// VerdictFromHeuristic marks a verdict from the fallback scorer.
	VerdictFromHeuristic VerdictSource = "heuristic"
	// VerdictFromCache marks a result served from the result cache.
	VerdictFromCache VerdictSource = "cache"
)

// Verdict is a decision before evidence links are attached.
type Verdict struct {
	Verified        bool          `json:"verified"`
	ConfidenceScore int           `json:"confidence_score" validate:"min=0,max=100"`
	Summary         string        `json:"summary"`
	Source          VerdictSource `json:"-"`
}

// IsVerifiedScore reports whether a heuristic score crosses the verified
// threshold.
func IsVerifiedScore(score int) bool { return score >= VerifiedThreshold }
