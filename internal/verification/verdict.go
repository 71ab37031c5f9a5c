package verification

import (
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Em-Deesha/profverify/internal/domain"
)

// Package-level validator instance for request and verdict validation.
var validate = validator.New()

// ParseVerdict extracts a verdict from raw model output and coerces it:
// verified by truthiness, confidence_score by integer prefix then clamped,
// summary as text. ok is false when no JSON object can be found.
func ParseVerdict(raw string) (*domain.Verdict, bool) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return nil, false
	}

	v := &domain.Verdict{
		Verified:        domain.IsTruthy(obj["verified"]),
		ConfidenceScore: domain.ClampScore(parseIntPrefix(domain.StringValue(obj["confidence_score"]))),
		Source:          domain.VerdictFromLLM,
	}
	if domain.IsTruthy(obj["summary"]) {
		v.Summary = domain.StringValue(obj["summary"])
	}

	if err := validate.Struct(v); err != nil {
		return nil, false
	}
	return v, true
}

// parseIntPrefix reads an optionally signed run of leading decimal digits,
// after leading whitespace. "85%" is 85, "87.9" is 87 and anything without
// digits is 0. Values beyond the int32 range saturate.
func parseIntPrefix(s string) int {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if n < math.MaxInt32 {
			n = n*10 + int(s[i]-'0')
		}
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	if neg {
		return -n
	}
	return n
}
