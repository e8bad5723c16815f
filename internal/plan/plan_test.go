package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writePlan(t, `
name: nightly-isolation
description: "Pairwise isolation across three identities"
groups:
  - name: alpha
    members: [alice, bob]
  - name: beta
    members: [bob]
`)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly-isolation", p.Name)
	require.Len(t, p.Groups, 2)
	assert.Equal(t, []string{"alice", "bob"}, p.Groups[0].Members)
	assert.Equal(t, []string{"alice", "bob"}, p.Identities())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read plan file")
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writePlan(t, `
name: typo
group:
  - name: alpha
    members: [alice]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse plan YAML")
}

func TestLoad_DomainOverride(t *testing.T) {
	path := writePlan(t, `
name: custom-domain
domain: noto
groups:
  - name: alpha
    members: [alice]
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "noto", p.Domain)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr string
	}{
		{
			name:    "missing name",
			plan:    Plan{Groups: []Group{{Name: "alpha", Members: []string{"alice"}}}},
			wantErr: "name is required",
		},
		{
			name:    "no groups",
			plan:    Plan{Name: "p"},
			wantErr: "groups list is required",
		},
		{
			name: "duplicate group",
			plan: Plan{Name: "p", Groups: []Group{
				{Name: "alpha", Members: []string{"alice"}},
				{Name: "alpha", Members: []string{"bob"}},
			}},
			wantErr: `duplicate group name "alpha"`,
		},
		{
			name:    "empty members",
			plan:    Plan{Name: "p", Groups: []Group{{Name: "alpha"}}},
			wantErr: "members list must be non-empty",
		},
		{
			name: "duplicate member",
			plan: Plan{Name: "p", Groups: []Group{
				{Name: "alpha", Members: []string{"alice", "alice"}},
			}},
			wantErr: `duplicate member "alice"`,
		},
		{
			name: "overlapping membership is allowed",
			plan: Plan{Name: "p", Groups: []Group{
				{Name: "alpha", Members: []string{"alice", "bob"}},
				{Name: "beta", Members: []string{"bob"}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
