// Package catalog loads agent profiles from YAML and registers them.
//
// A built-in catalog is embedded in the binary. It carries the recruiter and
// validator agents the orchestrator depends on plus a few generalists, so a
// fresh database can run without recruiting for common skills.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/codename-co/devs-sub002/pkg/models"
)

//go:embed agents.yaml
var builtin []byte

// ErrInvalidCatalog indicates a catalog that cannot be registered.
var ErrInvalidCatalog = errors.New("invalid agent catalog")

// Catalog is a list of agent profiles.
type Catalog struct {
	Agents []*models.Agent `yaml:"agents"`
}

// Registry stores agent profiles by ID.
type Registry interface {
	Upsert(ctx context.Context, a *models.Agent) error
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(builtin)
}

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every agent has an ID, a name and instructions, and
// that IDs are unique.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a == nil {
			return fmt.Errorf("%w: entry %d is empty", ErrInvalidCatalog, i)
		}
		a.ID = strings.TrimSpace(a.ID)
		switch {
		case a.ID == "":
			return fmt.Errorf("%w: entry %d has no id", ErrInvalidCatalog, i)
		case seen[a.ID]:
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, a.ID)
		case strings.TrimSpace(a.Name) == "":
			return fmt.Errorf("%w: agent %q has no name", ErrInvalidCatalog, a.ID)
		case strings.TrimSpace(a.Instructions) == "":
			return fmt.Errorf("%w: agent %q has no instructions", ErrInvalidCatalog, a.ID)
		}
		seen[a.ID] = true
		a.Instructions = strings.TrimSpace(a.Instructions)
	}
	return nil
}

// Find returns the agent with id, or nil.
func (c *Catalog) Find(id string) *models.Agent {
	for _, a := range c.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Missing returns the ids not present in the catalog.
func (c *Catalog) Missing(ids ...string) []string {
	var out []string
	for _, id := range ids {
		if id != "" && c.Find(id) == nil {
			out = append(out, id)
		}
	}
	return out
}

// Seed registers every catalog agent, replacing stored profiles with the same
// ID. It returns the number of agents written.
func Seed(ctx context.Context, reg Registry, c *Catalog) (int, error) {
	n := 0
	for _, a := range c.Agents {
		profile := *a
		profile.Tags = append([]string(nil), a.Tags...)
		if err := reg.Upsert(ctx, &profile); err != nil {
			return n, fmt.Errorf("seed agent %s: %w", a.ID, err)
		}
		n++
	}
	return n, nil
}
