package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/task"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: no-moment
    description: moment.js is deprecated in this project
    severity: error
    applies_to: 'import'
    forbidden:
      - pattern: 'from\s+[''"]moment[''"]'
        description: moment.js import
        fix: use date-fns instead
  - id: service-suffix
    description: service modules carry a Service suffix
    task_types: [feature]
    severity: warn
    required:
      - pattern: 'class\s+\w+Service'
        description: a Service class
`)

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))

	profiles := r.Profiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, "no-moment", profiles[0].ID)
	assert.Equal(t, task.SeverityError, profiles[0].Severity)
	assert.Equal(t, []task.TaskType{task.TaskFeature}, profiles[1].TaskTypes)

	result := r.ValidateCode("import moment from 'moment';\n")
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "no-moment", result.Violations[0].RuleID)
	assert.Equal(t, "use date-fns instead", result.Violations[0].SuggestedFix)

	// The selector gates evaluation: no import keyword, no finding.
	result = r.ValidateCode("const x = 1;\n")
	assert.Empty(t, result.Violations)
}

func TestLoadFileReplacesBuiltin(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: no-console-debug
    description: console is fine here
    severity: warn
    forbidden:
      - pattern: 'console\.error\('
        description: console.error call
`)

	r := DefaultRegistry()
	before := len(r.Profiles())
	require.NoError(t, r.LoadFile(path))
	assert.Len(t, r.Profiles(), before, "replacement keeps the profile count")

	result := r.ValidateCode("console.log('hi');\n")
	for _, v := range result.Violations {
		assert.NotEqual(t, "no-console-debug", v.RuleID, "the built-in pattern was replaced")
	}
}

func TestLoadFileRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid regex", `
rules:
  - id: broken
    severity: error
    forbidden:
      - pattern: '['
        description: broken
`},
		{"unknown task type", `
rules:
  - id: bad-type
    severity: error
    task_types: [deployment]
    forbidden:
      - pattern: 'x'
        description: x
`},
		{"unknown severity", `
rules:
  - id: bad-severity
    severity: critical
    forbidden:
      - pattern: 'x'
        description: x
`},
		{"not yaml", "rules: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			assert.Error(t, r.LoadFile(writeRulesFile(t, tt.content)))
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
}
