package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codename-co/devs-sub002/internal/state"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("built-in catalog: %v", err)
	}
	if missing := c.Missing("recruiter", "validator", "generalist"); len(missing) != 0 {
		t.Errorf("built-in catalog lacks %v", missing)
	}
	if v := c.Find("validator"); v == nil || !strings.Contains(v.Instructions, "validation_passed") {
		t.Error("validator instructions should describe the verdict object")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "agents: [unterminated"},
		{"missing id", "agents:\n  - name: A\n    instructions: x\n"},
		{"duplicate id", "agents:\n  - {id: a, name: A, instructions: x}\n  - {id: a, name: B, instructions: y}\n"},
		{"missing name", "agents:\n  - {id: a, instructions: x}\n"},
		{"missing instructions", "agents:\n  - {id: a, name: A}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("err = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := "agents:\n  - id: poet\n    name: Poet\n    role: writes verse\n    tags: [poetry]\n    instructions: |\n      Write poems.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	poet := c.Find("poet")
	if poet == nil || poet.Instructions != "Write poems." || !poet.HasTag("Poetry") {
		t.Errorf("poet = %+v", poet)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	db, err := state.OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "devs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	reg := state.NewAgentRegistry(db)

	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	n, err := Seed(ctx, reg, c)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(c.Agents) {
		t.Errorf("seeded %d, want %d", n, len(c.Agents))
	}

	// Seeding twice replaces profiles instead of duplicating them.
	c.Find("writer").Role = "edits prose"
	if _, err := Seed(ctx, reg, c); err != nil {
		t.Fatal(err)
	}
	all, err := reg.FindAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(c.Agents) {
		t.Errorf("registry holds %d agents, want %d", len(all), len(c.Agents))
	}
	writer, err := reg.FindByID(ctx, "writer")
	if err != nil || writer == nil || writer.Role != "edits prose" {
		t.Errorf("writer = %+v, %v", writer, err)
	}
}
