package extract

import (
	"errors"
	"testing"
	"unicode/utf8"
)

func TestObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"strict object", `{"a":1}`, `{"a":1}`, true},
		{"padded object", "  \n{\"a\":1}\n ", `{"a":1}`, true},
		{"fenced object", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"embedded object", `Here you go: {"name":"x","role":"y"} hope it helps`, `{"name":"x","role":"y"}`, true},
		{"nested object", `prefix {"a":{"b":2}} suffix {"c":3}`, `{"a":{"b":2}}`, true},
		{"brace inside string", `ok {"reason":"use } carefully"} done`, `{"reason":"use } carefully"}`, true},
		{"escaped quote inside string", `{"reason":"say \"hi\" {"}`, `{"reason":"say \"hi\" {"}`, true},
		{"unbalanced then balanced", `{ broken { "a": 1 }`, `{ "a": 1 }`, true},
		{"no object", "validation passed", "", false},
		{"unterminated", `{"a": 1`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Object(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Object() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Passed bool   `json:"validation_passed"`
		Reason string `json:"reason"`
	}

	if err := Decode(`Verdict: {"validation_passed": false, "reason": "missing tests"}`, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Passed || out.Reason != "missing tests" {
		t.Errorf("unexpected decode result: %+v", out)
	}

	err := Decode("no json here", &out)
	if !errors.Is(err, ErrNoObject) {
		t.Errorf("expected ErrNoObject, got %v", err)
	}

	err = Decode(`{"validation_passed": "maybe"}`, &out)
	if !errors.Is(err, ErrNoObject) {
		t.Errorf("type mismatch should wrap ErrNoObject, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
	got := Truncate("héllo wörld", 2)
	if got != "hé..." || !utf8.ValidString(got) {
		t.Errorf("Truncate split a rune: %q", got)
	}
}
