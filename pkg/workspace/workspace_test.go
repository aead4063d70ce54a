package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	return ws
}

func TestNewRequiresExistingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New(file)
	assert.Error(t, err, "a plain file cannot be a workspace root")
}

func TestResolveContainment(t *testing.T) {
	ws := newTestWorkspace(t)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative path", "src/app.ts", false},
		{"absolute-style path stays inside", "/src/app.ts", false},
		{"dot segments collapse inside", "src/../other/app.ts", false},
		{"escape via dot segments", "../outside.ts", true},
		{"deep escape", "a/../../outside.ts", true},
		{"empty path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, err := ws.Resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			rel, err := filepath.Rel(ws.Root(), abs)
			require.NoError(t, err)
			assert.False(t, filepath.IsAbs(rel) || rel == ".." || len(rel) > 1 && rel[:2] == "..",
				"resolved path %s escapes root", abs)
		})
	}
}

func TestResolveAbsoluteStyleIsWorkspaceRelative(t *testing.T) {
	ws := newTestWorkspace(t)
	a, err := ws.Resolve("src/app.ts")
	require.NoError(t, err)
	b, err := ws.Resolve("/src/app.ts")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriteCreatesParentDirectories(t *testing.T) {
	ws := newTestWorkspace(t)

	require.NoError(t, ws.WriteFile("src/deep/nested/file.ts", []byte("content")))
	data, err := ws.ReadFile("src/deep/nested/file.ts")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.True(t, ws.Exists("src/deep/nested"))
}

func TestReadMissingFileIsNotExist(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.ReadFile("src/missing.ts")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "recovery classification relies on the wrapped sentinel")
}

func TestLocalRunner(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.WriteFile("marker.txt", []byte("here\n")))
	runner := NewLocalRunner(ws, 10*time.Second)

	result, err := runner.Run(context.Background(), "cat marker.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "here\n", result.Stdout)

	// Non-zero exit is a result, not a transport error.
	result, err = runner.Run(context.Background(), "exit 7")
	require.NoError(t, err)
	assert.Equal(t, 7, result.ExitCode)

	result, err = runner.Run(context.Background(), "pwd")
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, filepath.Base(ws.Root()), "commands run inside the workspace root")
}

func TestLocalRunnerTimeout(t *testing.T) {
	ws := newTestWorkspace(t)
	runner := NewLocalRunner(ws, 100*time.Millisecond)

	result, err := runner.Run(context.Background(), "sleep 5")
	if err == nil {
		assert.NotEqual(t, 0, result.ExitCode)
	}
}
