package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelProvider(t *testing.T) {
	tests := []struct {
		model    string
		provider string
		wantErr  bool
	}{
		{"claude-sonnet-4-5", ProviderAnthropic, false},
		{"gpt-5", ProviderOpenAI, false},
		{"o3-mini", ProviderOpenAI, false},
		{"gemini-2.5-flash", ProviderGoogle, false},
		{"qwen2.5-coder:32b", ProviderOllama, false},
		{"llama3.1:8b", ProviderOllama, false},
		{"custom-model:latest", ProviderOllama, false},
		{"mystery-model", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			provider, err := GetModelProvider(tt.model)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
		})
	}
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	defer SetConfigForTesting(nil)
	dir := t.TempDir()

	require.NoError(t, LoadConfig(dir))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, ModelClaudeSonnet, cfg.LLM.Model)
	assert.Equal(t, DefaultMaxAttempts, cfg.Executor.MaxAttempts)
	assert.Equal(t, DefaultSourceRoot, cfg.SourceRoot)
	assert.Equal(t, RecoverSwitchToWrite, cfg.Recovery.MissingTarget)
	assert.Equal(t, RecoverFatal, cfg.Recovery.PermissionDenied)
	assert.True(t, cfg.Persistence.Enabled)

	// The defaults were written back for the user to edit.
	_, err = os.Stat(filepath.Join(dir, ProjectConfigDir, "config.yaml"))
	assert.NoError(t, err)
}

func TestLoadConfigReadsExistingFile(t *testing.T) {
	defer SetConfigForTesting(nil)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProjectConfigDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigDir, "config.yaml"), []byte(`
llm:
  model: gpt-5
executor:
  max_attempts: 5
recovery:
  missing_target: fatal
`), 0o644))

	require.NoError(t, LoadConfig(dir))
	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Executor.MaxAttempts)
	assert.Equal(t, RecoverFatal, cfg.Recovery.MissingTarget)
	assert.Equal(t, RecoverInsertInitStep, cfg.Recovery.MissingProjectFile, "unset fields keep defaults")
	assert.Equal(t, DefaultMaxTokens, cfg.LLM.MaxTokens)
}

func TestLoadConfigRefusesUnparseableFile(t *testing.T) {
	defer SetConfigForTesting(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigDir, "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("llm: ["), 0o644))

	err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")

	// The broken file must survive untouched.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "llm: [", string(data))
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "attempts above ceiling",
			content: `
llm:
  model: gpt-5
executor:
  max_attempts: 9
`,
			wantErr: "max_attempts",
		},
		{
			name: "unknown provider",
			content: `
llm:
  model: mystery-model
`,
			wantErr: "provider",
		},
		{
			name: "unknown recovery action",
			content: `
llm:
  model: gpt-5
recovery:
  missing_target: retry_forever
`,
			wantErr: "recovery action",
		},
		{
			name: "temperature out of range",
			content: `
llm:
  model: gpt-5
  temperature: 3.5
`,
			wantErr: "temperature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer SetConfigForTesting(nil)
			dir := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(dir, ProjectConfigDir), 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigDir, "config.yaml"),
				[]byte(tt.content), 0o644))

			err := LoadConfig(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetConfigBeforeLoad(t *testing.T) {
	SetConfigForTesting(nil)
	_, err := GetConfig()
	assert.Error(t, err)
}

func TestGetConfigReturnsValue(t *testing.T) {
	defer SetConfigForTesting(nil)
	SetConfigForTesting(createDefaultConfig())

	cfg, err := GetConfig()
	require.NoError(t, err)
	cfg.LLM.Model = "mutated"

	again, err := GetConfig()
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.LLM.Model, "callers must not be able to mutate shared state")
}
