// Package plan loads the YAML test plan: the set of privacy groups to
// create and verify. The plan declares intent only; identity resolution
// and node endpoints live in the run configuration.
package plan

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Group declares one privacy group to verify.
type Group struct {
	// Name uniquely identifies this group within the plan.
	Name string `yaml:"name"`

	// Members lists symbolic identity names. Every member must be
	// declared in the run configuration's identity assignments.
	Members []string `yaml:"members"`
}

// Plan is the full verification plan.
type Plan struct {
	// Name identifies the plan in logs and reports.
	Name string `yaml:"name"`

	// Description explains what this plan verifies.
	Description string `yaml:"description,omitempty"`

	// Domain optionally overrides the configured platform domain for
	// every group in the plan.
	Domain string `yaml:"domain,omitempty"`

	// Groups lists the privacy groups to create and probe.
	Groups []Group `yaml:"groups"`
}

// Load reads and parses a plan YAML file. Unknown fields are rejected so
// typos fail loudly instead of silently shrinking the matrix.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var p Plan
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &p, nil
}

// Validate checks structural requirements: a non-empty named plan, unique
// group names, and at least one member per group. Membership overlap
// between groups is allowed; disjointness claims are verified at runtime
// by the matrix, not assumed here.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(p.Groups) == 0 {
		return fmt.Errorf("groups list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(p.Groups))
	for i, g := range p.Groups {
		if g.Name == "" {
			return fmt.Errorf("groups[%d]: name is required", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("groups[%d]: duplicate group name %q", i, g.Name)
		}
		seen[g.Name] = true

		if len(g.Members) == 0 {
			return fmt.Errorf("group %q: members list must be non-empty", g.Name)
		}
		members := make(map[string]bool, len(g.Members))
		for _, m := range g.Members {
			if m == "" {
				return fmt.Errorf("group %q: empty member name", g.Name)
			}
			if members[m] {
				return fmt.Errorf("group %q: duplicate member %q", g.Name, m)
			}
			members[m] = true
		}
	}
	return nil
}

// Identities returns the union of all member names across the plan's
// groups, deduplicated. Callers verify each against the configured
// identity assignments before the run starts.
func (p *Plan) Identities() []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range p.Groups {
		for _, m := range g.Members {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}
