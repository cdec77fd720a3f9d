package validation

import (
	"strings"

	"github.com/codename-co/devs-sub002/internal/extract"
)

type verdictJSON struct {
	ValidationPassed *bool  `json:"validation_passed"`
	Reason           string `json:"reason"`
}

// ParseVerdict reads the validator's reply. A JSON object with
// validation_passed is preferred, whether it is the whole reply or embedded
// in prose; anything else is judged by HeuristicVerdict.
func ParseVerdict(reply string) Verdict {
	var v verdictJSON
	if err := extract.Decode(reply, &v); err == nil && v.ValidationPassed != nil {
		reason := strings.TrimSpace(v.Reason)
		return Verdict{Passed: *v.ValidationPassed, Reason: reason, Source: SourceJSON}
	}
	return Verdict{
		Passed: HeuristicVerdict(reply),
		Reason: extract.Truncate(strings.TrimSpace(reply), 500),
		Source: SourceHeuristic,
	}
}

// HeuristicVerdict passes a free-text reply that mentions "true" or
// "passed", ignoring case.
func HeuristicVerdict(reply string) bool {
	lower := strings.ToLower(reply)
	return strings.Contains(lower, "true") || strings.Contains(lower, "passed")
}
