package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/rules"
	"assistant/pkg/task"
	"assistant/pkg/workspace"
)

func newTestChecker(t *testing.T) (*Checker, string) {
	t.Helper()
	root := t.TempDir()
	ws, err := workspace.New(root)
	require.NoError(t, err)
	return NewChecker(rules.DefaultRegistry(), ws, ""), root
}

func violationCodes(result *Result) []string {
	var codes []string
	for _, v := range result.Violations {
		codes = append(codes, v.RuleID)
	}
	return codes
}

func TestCheckStepPathGuards(t *testing.T) {
	checker, _ := newTestChecker(t)

	tests := []struct {
		name     string
		step     *task.Step
		approved bool
		code     task.ErrorCode
	}{
		{
			name:     "clean write path",
			step:     &task.Step{ID: "s1", Kind: task.StepWrite, Path: "src/components/Button.tsx"},
			approved: true,
		},
		{
			name:     "placeholder directory",
			step:     &task.Step{ID: "s2", Kind: task.StepWrite, Path: "/path/to/x.ts"},
			approved: false,
			code:     task.ErrPathPlaceholder,
		},
		{
			name:     "consecutive spaces",
			step:     &task.Step{ID: "s3", Kind: task.StepWrite, Path: "src/my  component.ts"},
			approved: false,
			code:     task.ErrPathMalformed,
		},
		{
			name:     "ellipsis in path",
			step:     &task.Step{ID: "s4", Kind: task.StepWrite, Path: "src/compo....ts"},
			approved: false,
			code:     task.ErrPathMalformed,
		},
		{
			name:     "write without extension",
			step:     &task.Step{ID: "s5", Kind: task.StepWrite, Path: "src/button"},
			approved: false,
			code:     task.ErrPathMalformed,
		},
		{
			name:     "hallucinated token in path",
			step:     &task.Step{ID: "s6", Kind: task.StepWrite, Path: "src/manual.ts"},
			approved: false,
			code:     task.ErrContractViolation,
		},
		{
			name:     "empty path",
			step:     &task.Step{ID: "s7", Kind: task.StepWrite, Path: "   "},
			approved: false,
			code:     task.ErrPathMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.CheckStep(tt.step, nil)
			assert.Equal(t, tt.approved, result.Approved)
			if !tt.approved {
				assert.Contains(t, violationCodes(result), string(tt.code))
				assert.Contains(t, result.Report, "pre-flight rejected")
			}
		})
	}
}

func TestCheckStepGreenfieldRead(t *testing.T) {
	checker, root := newTestChecker(t)

	// No earlier write and no file on disk.
	read := &task.Step{ID: "r1", Kind: task.StepRead, Path: "src/missing.ts"}
	result := checker.CheckStep(read, nil)
	assert.False(t, result.Approved)
	assert.Contains(t, violationCodes(result), string(task.ErrGreenfieldRead))

	// Approved once an earlier step in the plan wrote the path.
	result = checker.CheckStep(read, map[string]bool{"src/missing.ts": true})
	assert.True(t, result.Approved)

	// Approved once the file exists in the workspace.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "existing.ts"), []byte("export {};\n"), 0o644))
	result = checker.CheckStep(&task.Step{ID: "r2", Kind: task.StepRead, Path: "src/existing.ts"}, nil)
	assert.True(t, result.Approved)
}

// The greenfield check looks up the sanitized path, so markdown quoting
// around an existing file does not trigger a false rejection.
func TestCheckStepGreenfieldReadSanitizesLookup(t *testing.T) {
	checker, root := newTestChecker(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "app.ts"), []byte("export {};\n"), 0o644))

	result := checker.CheckStep(&task.Step{ID: "r1", Kind: task.StepRead, Path: "`src/app.ts`"}, nil)
	assert.True(t, result.Approved)
}

// The sanitized lookup rewrites placeholder segments to the configured
// source root, not a hardcoded one. The placeholder violation is still
// reported, but a file under the project's real root is found.
func TestCheckStepGreenfieldReadHonorsSourceRoot(t *testing.T) {
	root := t.TempDir()
	ws, err := workspace.New(root)
	require.NoError(t, err)
	checker := NewChecker(rules.DefaultRegistry(), ws, "app")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "util.ts"), []byte("export {};\n"), 0o644))

	result := checker.CheckStep(&task.Step{ID: "r1", Kind: task.StepRead, Path: "path/to/util.ts"}, nil)
	codes := violationCodes(result)
	assert.Contains(t, codes, string(task.ErrPathPlaceholder))
	assert.NotContains(t, codes, string(task.ErrGreenfieldRead))
}

func TestCheckStepReadWithoutExtensionAllowed(t *testing.T) {
	checker, root := newTestChecker(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Makefile"), []byte("all:\n"), 0o644))

	// The extension guard only applies to file-producing steps.
	result := checker.CheckStep(&task.Step{ID: "r1", Kind: task.StepRead, Path: "Makefile"}, nil)
	assert.True(t, result.Approved)
}

func TestCheckStepCommand(t *testing.T) {
	checker, _ := newTestChecker(t)

	result := checker.CheckStep(&task.Step{ID: "c1", Kind: task.StepCommand, Command: "npm test"}, nil)
	assert.True(t, result.Approved)

	result = checker.CheckStep(&task.Step{ID: "c2", Kind: task.StepCommand, Command: "run the manual steps"}, nil)
	assert.False(t, result.Approved)
	assert.Contains(t, violationCodes(result), string(task.ErrContractViolation))

	result = checker.CheckStep(&task.Step{ID: "c3", Kind: task.StepCommand, Command: "  "}, nil)
	assert.False(t, result.Approved)
}

func TestCheckRequest(t *testing.T) {
	checker, _ := newTestChecker(t)

	result := checker.CheckRequest("Create a reusable Button component", task.TaskComponent)
	assert.True(t, result.Approved)
	assert.Contains(t, result.ApplicableRules, "props-typing")
	assert.Contains(t, result.Report, "applicable rules")

	result = checker.CheckRequest("   ", task.TaskGeneral)
	assert.False(t, result.Approved)
	assert.Contains(t, violationCodes(result), string(task.ErrContractViolation))
}
