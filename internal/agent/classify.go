package agent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// maxKeywords bounds the keywords used to look up shared context.
const maxKeywords = 12

// minKeywordRunes is the shortest word treated as significant.
const minKeywordRunes = 4

var stopWords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "also": true,
	"because": true, "been": true, "before": true, "being": true, "below": true,
	"between": true, "both": true, "could": true, "does": true, "doing": true,
	"each": true, "from": true, "further": true, "have": true, "having": true,
	"here": true, "into": true, "just": true, "like": true, "make": true,
	"more": true, "most": true, "must": true, "need": true, "only": true,
	"other": true, "over": true, "please": true, "same": true, "should": true,
	"some": true, "such": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "under": true, "until": true,
	"very": true, "want": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "will": true, "with": true,
	"would": true, "your": true, "include": true, "ensure": true,
}

// words splits text into lowercase words of letters and digits.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// significant reports whether w is long enough and not a stop word.
func significant(w string) bool {
	return utf8.RuneCountInString(w) >= minKeywordRunes && !stopWords[w]
}

// ExtractKeywords returns up to 12 distinct significant words of text, in
// order of first appearance.
func ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range words(text) {
		if !significant(w) || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// artifactSignals are checked in order; the first type with a hit wins.
var artifactSignals = []struct {
	kind    models.ArtifactType
	markers []string
}{
	{models.ArtifactCode, []string{"```", "func ", "def ", "class ", "import ", "package ", "#include", "const ", "=> {"}},
	{models.ArtifactAnalysis, []string{"analysis", "analyze", "analyse", "findings", "assessment"}},
	{models.ArtifactDesign, []string{"design", "architecture", "diagram", "wireframe", "mockup"}},
	{models.ArtifactPlan, []string{"plan", "roadmap", "milestone", "timeline", "phase 1"}},
	{models.ArtifactReport, []string{"report", "summary", "conclusion", "executive"}},
}

// ClassifyArtifact guesses the artifact type from its content.
func ClassifyArtifact(content string) models.ArtifactType {
	lower := strings.ToLower(content)
	for _, s := range artifactSignals {
		for _, m := range s.markers {
			if strings.Contains(lower, m) {
				return s.kind
			}
		}
	}
	return models.ArtifactDocument
}

// CoveredRequirements returns the IDs of requirements whose significant
// words mostly appear in content. A requirement counts as covered when at
// least half of its significant words (rounded up) are present; one with no
// significant words is never covered.
func CoveredRequirements(reqs []models.Requirement, content string) []string {
	present := make(map[string]bool)
	for _, w := range words(content) {
		present[w] = true
	}

	var covered []string
	for _, r := range reqs {
		total, hits := 0, 0
		seen := make(map[string]bool)
		for _, w := range words(r.Description) {
			if !significant(w) || seen[w] {
				continue
			}
			seen[w] = true
			total++
			if present[w] {
				hits++
			}
		}
		if total > 0 && hits*2 >= total {
			covered = append(covered, r.ID)
		}
	}
	return covered
}
