package validation

import "testing"

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantPassed bool
		wantSource string
	}{
		{"strict true", `{"validation_passed": true, "reason": "ok"}`, true, SourceJSON},
		{"strict false", `{"validation_passed": false, "reason": "passed nothing"}`, false, SourceJSON},
		{"fenced", "```json\n{\"validation_passed\": false, \"reason\": \"x\"}\n```", false, SourceJSON},
		{"object without verdict field", `{"reason": "it passed"}`, true, SourceHeuristic},
		{"prose pass", "All requirements passed.", true, SourceHeuristic},
		{"prose true", "That is TRUE.", true, SourceHeuristic},
		{"prose fail", "The report is missing the summary.", false, SourceHeuristic},
		{"empty", "", false, SourceHeuristic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVerdict(tt.reply)
			if got.Passed != tt.wantPassed || got.Source != tt.wantSource {
				t.Errorf("ParseVerdict(%q) = %+v, want passed=%v source=%s", tt.reply, got, tt.wantPassed, tt.wantSource)
			}
		})
	}
}

func TestHeuristicVerdict(t *testing.T) {
	for reply, want := range map[string]bool{
		"validation_passed: True": true,
		"PASSED":                  true,
		"failed":                  false,
		"not yet":                 false,
	} {
		if got := HeuristicVerdict(reply); got != want {
			t.Errorf("HeuristicVerdict(%q) = %v, want %v", reply, got, want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short"); got != "short" {
		t.Errorf("Preview(short) = %q", got)
	}
	long := make([]rune, 650)
	for i := range long {
		long[i] = 'a'
	}
	if got := Preview(string(long)); len([]rune(got)) != 603 {
		t.Errorf("Preview length = %d runes, want 603", len([]rune(got)))
	}
}
