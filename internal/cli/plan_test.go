package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlanFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPlanValidate_Text(t *testing.T) {
	path := writePlanFile(t, `
name: isolation
groups:
  - name: alpha
    members: [alice, bob]
  - name: beta
    members: [bob]
`)

	out, err := execute(t, "plan", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "plan isolation: OK (2 groups, 2 identities)")
}

func TestPlanValidate_JSON(t *testing.T) {
	path := writePlanFile(t, `
name: isolation
groups:
  - name: alpha
    members: [alice]
`)

	out, err := execute(t, "--format", "json", "plan", "validate", path)
	require.NoError(t, err)

	var result PlanValidation
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, "isolation", result.Plan)
	assert.Equal(t, []string{"alice"}, result.Idents)
}

func TestPlanValidate_InvalidPlan(t *testing.T) {
	path := writePlanFile(t, `
name: broken
groups:
  - name: alpha
    members: []
`)

	_, err := execute(t, "plan", "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "members list must be non-empty")
}

func TestPlanValidate_InvalidPlanJSON(t *testing.T) {
	path := writePlanFile(t, `
name: broken
groups: []
`)

	out, err := execute(t, "--format", "json", "plan", "validate", path)
	require.Error(t, err)

	var result PlanValidation
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "groups list is required")
}
