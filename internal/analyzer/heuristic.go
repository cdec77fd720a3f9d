package analyzer

import (
	"regexp"
	"strings"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// RequestType represents the classification of a work request.
type RequestType string

const (
	// RequestTypeQuick is a short, self-contained request (single agent).
	RequestTypeQuick RequestType = "QUICK"
	// RequestTypeBuild is the production of a new deliverable (parallel agents OK).
	RequestTypeBuild RequestType = "BUILD"
	// RequestTypeFix is the correction of something existing (single focused agent).
	RequestTypeFix RequestType = "FIX"
	// RequestTypeRevise is the rework of existing material (depends on scope).
	RequestTypeRevise RequestType = "REVISE"
)

// Classification is the heuristic view of a request.
type Classification struct {
	// Type is the classified request type.
	Type RequestType
	// Confidence is the share of matched patterns won by Type (0.0-1.0).
	Confidence float64
	// MaxAgents is the recommended maximum number of concurrent agents.
	MaxAgents int
	// Keywords are the matched phrases that influenced the classification.
	Keywords []string
	// Items is the number of distinct items the request enumerates.
	Items int
}

// skill maps request keywords to the agent spec that handles them.
type skill struct {
	spec     models.AgentSpec
	patterns []*regexp.Regexp
}

// Heuristic classifies requests with keyword patterns.
type Heuristic struct {
	quickPatterns  []*regexp.Regexp
	buildPatterns  []*regexp.Regexp
	fixPatterns    []*regexp.Regexp
	revisePatterns []*regexp.Regexp
	requirement    *regexp.Regexp
	skills         []skill
}

// NewHeuristic creates a Heuristic with the default patterns.
func NewHeuristic() *Heuristic {
	return &Heuristic{
		quickPatterns: compilePatterns([]string{
			`\b(summari[sz]e|summary|tl;?dr)\b`,
			`\b(translate|translation)\b`,
			`\b(what is|what are|who is|explain|define)\b`,
			`\b(rephrase|reword|proofread)\b`,
			`\b(a (short|quick|brief))\b`,
			`\b(one|single)\s+(paragraph|sentence|line)\b`,
		}),
		buildPatterns: compilePatterns([]string{
			`\b(build|create|develop|design|produce)\b`,
			`\b(implement|implementing)\b`,
			`\b(plan|strategy|roadmap|campaign)\b`,
			`\b(launch|release|rollout)\b`,
			`\b(end[- ]to[- ]end|full|complete|comprehensive)\b`,
			`\b(website|application|app|platform|service|api)\b`,
			`\b(report|study|research|analysis)\b`,
		}),
		fixPatterns: compilePatterns([]string{
			`\b(fix|fixing)\b`,
			`\b(bug|bugs)\b`,
			`\b(debug|debugging)\b`,
			`\b(resolve|resolving)\b`,
			`\b(broken|not working|doesn't work|does not work)\b`,
			`\b(error|errors)\b`,
			`\b(typo|typos)\b`,
		}),
		revisePatterns: compilePatterns([]string{
			`\b(refactor|refactoring)\b`,
			`\b(rewrite|rewriting)\b`,
			`\b(restructure|reorganize|reorganise)\b`,
			`\b(improve|improving)\s+(the\s+)?(code|structure|text|draft|wording)\b`,
			`\b(optimi[sz]e|optimizing)\b`,
			`\b(clean\s*up|cleanup|simplify)\b`,
		}),
		requirement: regexp.MustCompile(`(?i)\b(must|should|needs?|include|includes|ensure)\b`),
		skills:      defaultSkills(),
	}
}

// compilePatterns compiles a slice of pattern strings into case-insensitive
// regexps, skipping invalid ones.
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if r, err := regexp.Compile("(?i)" + p); err == nil {
			compiled = append(compiled, r)
		}
	}
	return compiled
}

func defaultSkills() []skill {
	table := []struct {
		name, role string
		skills     []string
		patterns   []string
	}{
		{"Software Engineer", "writes and reviews source code", []string{"coding", "software"},
			[]string{`\b(code|coding|program|function|api|backend|frontend|bug|refactor|golang|python|javascript|typescript|sql)\b`}},
		{"Writer", "drafts and edits written content", []string{"writing", "editing"},
			[]string{`\b(write|writing|article|blog|post|essay|copy|draft|documentation|email|story)\b`}},
		{"Researcher", "gathers and synthesizes information", []string{"research", "analysis"},
			[]string{`\b(research|investigate|compare|study|survey|sources|literature|market)\b`}},
		{"Designer", "designs interfaces and visual assets", []string{"design", "ux"},
			[]string{`\b(design|ui|ux|wireframe|mockup|layout|logo|brand)\b`}},
		{"Planner", "breaks goals into schedules and milestones", []string{"planning", "project management"},
			[]string{`\b(plan|roadmap|timeline|schedule|milestones?|launch|strategy)\b`}},
		{"Data Analyst", "analyzes data and builds reports", []string{"data", "statistics"},
			[]string{`\b(data|dataset|metrics|statistics|chart|dashboard|spreadsheet|csv)\b`}},
		{"Marketer", "positions products and plans campaigns", []string{"marketing"},
			[]string{`\b(marketing|campaign|audience|seo|social media|newsletter|pricing)\b`}},
		{"Translator", "translates text between languages", []string{"translation"},
			[]string{`\b(translate|translation|french|german|spanish|english|japanese|chinese)\b`}},
	}
	out := make([]skill, len(table))
	for i, s := range table {
		out[i] = skill{
			spec:     models.AgentSpec{Name: s.name, Role: s.role, RequiredSkills: s.skills},
			patterns: compilePatterns(s.patterns),
		}
	}
	return out
}

// Classify assigns a request type to request.
func (h *Heuristic) Classify(request string) Classification {
	lower := strings.ToLower(request)

	quick := countMatches(lower, h.quickPatterns)
	build := countMatches(lower, h.buildPatterns)
	fix := countMatches(lower, h.fixPatterns)
	revise := countMatches(lower, h.revisePatterns)

	var keywords []string
	for _, set := range [][]*regexp.Regexp{h.quickPatterns, h.buildPatterns, h.fixPatterns, h.revisePatterns} {
		keywords = append(keywords, matchedKeywords(lower, set)...)
	}

	c := Classification{
		Type:       RequestTypeBuild,
		Confidence: 0.5,
		MaxAgents:  1,
		Keywords:   keywords,
		Items:      countItems(lower),
	}

	most := max(quick, build, fix, revise)
	if most == 0 {
		// Nothing matched: only an enumeration suggests parallel work.
		if c.Items >= 3 {
			c.MaxAgents = min(c.Items, maxSuggestedAgents)
		}
		return c
	}
	c.Confidence = float64(most) / float64(quick+build+fix+revise)

	switch most {
	case quick:
		c.Type = RequestTypeQuick
	case fix:
		c.Type = RequestTypeFix
	case revise:
		c.Type = RequestTypeRevise
		c.MaxAgents = 2
	case build:
		c.MaxAgents = maxSuggestedAgents
	}
	return c
}

// Analyze builds an analysis of request from the patterns alone.
func (h *Heuristic) Analyze(request string) *models.Analysis {
	c := h.Classify(request)
	items := listItems(request)

	analysis := &models.Analysis{
		Complexity:          models.ComplexitySimple,
		Requirements:        h.Requirements(request),
		SuggestedAgentSpecs: h.SuggestSpecs(request),
		EstimatedPasses:     1,
	}
	if len(items) >= 2 || (c.MaxAgents > 1 && c.Items >= 3) {
		analysis.Complexity = models.ComplexityComplex
		analysis.EstimatedPasses = max(len(items), c.Items)
	}
	return analysis
}

// Requirements extracts one requirement per clause that states an obligation
// ("must", "should", "need", "include", "ensure"). Duplicates are dropped.
func (h *Heuristic) Requirements(request string) []models.Requirement {
	var reqs []models.Requirement
	seen := make(map[string]bool)
	for _, clause := range clauses(request) {
		m := h.requirement.FindStringSubmatch(clause)
		if m == nil {
			continue
		}
		key := strings.ToLower(clause)
		if seen[key] {
			continue
		}
		seen[key] = true

		typ, priority := "functional", "medium"
		switch strings.ToLower(m[1]) {
		case "must", "need", "needs":
			priority = "high"
		case "ensure":
			typ, priority = "constraint", "high"
		case "include", "includes":
			typ = "content"
		}
		reqs = append(reqs, models.Requirement{
			Type:        typ,
			Description: clause,
			Priority:    priority,
			Status:      models.RequirementPending,
		})
	}
	return reqs
}

// SuggestSpecs returns the specs of the skills the request mentions, in table
// order, at most maxSuggestedAgents.
func (h *Heuristic) SuggestSpecs(request string) []models.AgentSpec {
	lower := strings.ToLower(request)
	var specs []models.AgentSpec
	for _, s := range h.skills {
		if countMatches(lower, s.patterns) == 0 {
			continue
		}
		spec := s.spec
		spec.RequiredSkills = append([]string(nil), s.spec.RequiredSkills...)
		specs = append(specs, spec)
		if len(specs) == maxSuggestedAgents {
			break
		}
	}
	return specs
}

// countMatches counts how many patterns match the input.
func countMatches(input string, patterns []*regexp.Regexp) int {
	count := 0
	for _, p := range patterns {
		if p.MatchString(input) {
			count++
		}
	}
	return count
}

// matchedKeywords extracts the matched phrases from input.
func matchedKeywords(input string, patterns []*regexp.Regexp) []string {
	var keywords []string
	for _, p := range patterns {
		if m := p.FindString(input); m != "" {
			keywords = append(keywords, m)
		}
	}
	return keywords
}

// countItems estimates how many distinct items a request enumerates.
func countItems(lower string) int {
	itemSeparators := []string{",", " and ", "\n-", "\n*", "\n1.", "\n2."}
	itemCount := 1
	for _, sep := range itemSeparators {
		if strings.Contains(lower, sep) {
			itemCount = max(itemCount, strings.Count(lower, sep)+1)
		}
	}
	return itemCount
}

var clauseSplit = regexp.MustCompile(`[.;!?\n]+`)

// clauses splits text into trimmed sentence-like pieces, dropping list
// markers.
func clauses(text string) []string {
	var out []string
	for _, part := range clauseSplit.Split(text, -1) {
		part = strings.TrimSpace(listMarker.ReplaceAllString(part, ""))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
