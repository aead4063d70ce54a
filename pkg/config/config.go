// Package config manages the assistant configuration: model selection,
// attempt budgets, timeouts, recovery policy, and workspace conventions.
// Configuration lives in <projectDir>/.assistant/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"assistant/pkg/logx"
)

// Provider name constants.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Model name constants for commonly used models.
const (
	ModelClaudeSonnet = "claude-sonnet-4-5"
	ModelGPT5         = "gpt-5"
	ModelO3Mini       = "o3-mini"
	ModelGeminiFlash  = "gemini-2.5-flash"
	ModelQwenCoder    = "qwen2.5-coder:32b"
)

// System behavior constants.
const (
	// ProjectConfigDir is the per-project directory holding config, secrets,
	// and the session database.
	ProjectConfigDir = ".assistant"

	// DefaultSourceRoot is the conventional source root placeholder path
	// segments are rewritten to.
	DefaultSourceRoot = "src"

	// MaxAttemptsFloor and MaxAttemptsCeil bound the correction-loop
	// attempt budget.
	MaxAttemptsFloor = 1
	MaxAttemptsCeil  = 5

	// DefaultMaxAttempts is the correction-loop budget when unconfigured.
	DefaultMaxAttempts = 3

	// DefaultLLMTimeout bounds a single LLM call.
	DefaultLLMTimeout = 120 * time.Second

	// DefaultMaxTokens is the per-request completion token budget.
	DefaultMaxTokens = 8192

	// DefaultPromptBudgetTokens bounds the prompt side of a request.
	DefaultPromptBudgetTokens = 24000

	// DefaultTemperature for generation requests. Slight randomness avoids
	// the model restating an identical broken artifact on correction.
	DefaultTemperature = float32(0.2)
)

// ProviderPattern maps a model-name prefix to its API provider.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns infers providers from model names so new models work
// without code changes.
//
//nolint:gochecknoglobals // static inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"phi", ProviderOllama},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"codellama", ProviderOllama},
	{"deepseek", ProviderOllama},
	{"ollama:", ProviderOllama},
}

// GetModelProvider returns the API provider for a model name.
// Ollama-style tags (name:variant) map to Ollama unless a cloud prefix
// matches first.
func GetModelProvider(modelName string) (string, error) {
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}
	if strings.Contains(modelName, ":") {
		return ProviderOllama, nil
	}
	return "", fmt.Errorf("cannot determine provider for model %q", modelName)
}

// LLMConfig holds generation parameters for the LLM oracle.
type LLMConfig struct {
	Model        string        `yaml:"model"`
	Endpoint     string        `yaml:"endpoint,omitempty"` // Ollama host or API override
	MaxTokens    int           `yaml:"max_tokens"`
	PromptBudget int           `yaml:"prompt_budget,omitempty"`
	Temperature  float32       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ExecutorConfig bounds the correction loop.
type ExecutorConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// RecoveryAction names what the recovery strategist does for an I/O error
// class.
type RecoveryAction string

// Recovery actions.
const (
	RecoverSwitchToWrite  RecoveryAction = "switch_to_write"
	RecoverInsertInitStep RecoveryAction = "insert_init_step"
	RecoverFatal          RecoveryAction = "fatal"
)

// RecoveryConfig is the externally configurable policy table mapping I/O
// error classes to recovery actions.
type RecoveryConfig struct {
	MissingTarget      RecoveryAction `yaml:"missing_target"`
	MissingProjectFile RecoveryAction `yaml:"missing_project_file"`
	PermissionDenied   RecoveryAction `yaml:"permission_denied"`
	IsDirectory        RecoveryAction `yaml:"is_directory"`
}

// MetricsConfig controls Prometheus integration.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	PrometheusURL string `yaml:"prometheus_url,omitempty"`
}

// PersistenceConfig controls the session store.
type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path,omitempty"` // default: <projectDir>/.assistant/session.db
}

// Config is the full assistant configuration.
type Config struct {
	SourceRoot  string             `yaml:"source_root"`
	LLM         *LLMConfig         `yaml:"llm"`
	Executor    *ExecutorConfig    `yaml:"executor"`
	Recovery    *RecoveryConfig    `yaml:"recovery"`
	Metrics     *MetricsConfig     `yaml:"metrics,omitempty"`
	Persistence *PersistenceConfig `yaml:"persistence,omitempty"`
}

// Global config instance with mutex protection. projectDir is set once
// during LoadConfig and never changes.
//
//nolint:gochecknoglobals // singleton config, matches process lifecycle
var (
	config     *Config
	projectDir string
	logger     *logx.Logger
	mu         sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// GetConfig returns a copy of the current global config. All updates go
// through LoadConfig; callers cannot mutate shared state.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Config{}, fmt.Errorf("config not initialized - call LoadConfig first")
	}
	return copyConfig(config), nil
}

// copyConfig clones the config including its pointer sections, so a returned
// copy can be tweaked (model override, attempt budget) without touching the
// singleton.
func copyConfig(cfg *Config) Config {
	out := *cfg
	if cfg.LLM != nil {
		llm := *cfg.LLM
		out.LLM = &llm
	}
	if cfg.Executor != nil {
		ex := *cfg.Executor
		out.Executor = &ex
	}
	if cfg.Recovery != nil {
		rec := *cfg.Recovery
		out.Recovery = &rec
	}
	if cfg.Metrics != nil {
		m := *cfg.Metrics
		out.Metrics = &m
	}
	if cfg.Persistence != nil {
		p := *cfg.Persistence
		out.Persistence = &p
	}
	return out
}

// GetProjectDir returns the project directory set by LoadConfig.
func GetProjectDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return projectDir
}

// SetConfigForTesting sets the global config for testing purposes.
// Pass nil to reset.
func SetConfigForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	config = cfg
	if cfg == nil {
		projectDir = ""
	}
}

// LoadConfig loads <projectDir>/.assistant/config.yaml into the global
// singleton. A missing file produces a default config which is saved back;
// an unparseable file is a fatal error so user edits are never overwritten.
func LoadConfig(inputProjectDir string) error {
	mu.Lock()
	defer mu.Unlock()

	projectDir = inputProjectDir
	configPath := filepath.Join(projectDir, ProjectConfigDir, "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		getLogger().Info("Config file not found, creating defaults at %s", configPath)
		config = createDefaultConfig()
		if err := saveConfigLocked(configPath); err != nil {
			return fmt.Errorf("failed to save initial config: %w", err)
		}
		return nil
	}

	loaded, err := loadConfigFromFile(configPath)
	if err != nil {
		return fmt.Errorf("config file exists but cannot be parsed (refusing to overwrite): %w", err)
	}

	applyDefaults(loaded)
	if err := validateConfig(loaded); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	config = loaded
	getLogger().Info("Config loaded from %s (model: %s)", configPath, loaded.LLM.Model)
	return nil
}

func loadConfigFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

func saveConfigLocked(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func createDefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in any missing fields so older config files keep
// working after upgrades.
func applyDefaults(cfg *Config) {
	if cfg.SourceRoot == "" {
		cfg.SourceRoot = DefaultSourceRoot
	}
	if cfg.LLM == nil {
		cfg.LLM = &LLMConfig{}
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = ModelClaudeSonnet
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = DefaultMaxTokens
	}
	if cfg.LLM.PromptBudget <= 0 {
		cfg.LLM.PromptBudget = DefaultPromptBudgetTokens
	}
	if cfg.LLM.Temperature <= 0 {
		cfg.LLM.Temperature = DefaultTemperature
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = DefaultLLMTimeout
	}
	if cfg.Executor == nil {
		cfg.Executor = &ExecutorConfig{}
	}
	if cfg.Executor.MaxAttempts == 0 {
		cfg.Executor.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Recovery == nil {
		cfg.Recovery = &RecoveryConfig{}
	}
	if cfg.Recovery.MissingTarget == "" {
		cfg.Recovery.MissingTarget = RecoverSwitchToWrite
	}
	if cfg.Recovery.MissingProjectFile == "" {
		cfg.Recovery.MissingProjectFile = RecoverInsertInitStep
	}
	if cfg.Recovery.PermissionDenied == "" {
		cfg.Recovery.PermissionDenied = RecoverFatal
	}
	if cfg.Recovery.IsDirectory == "" {
		cfg.Recovery.IsDirectory = RecoverFatal
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{Enabled: false}
	}
	if cfg.Persistence == nil {
		cfg.Persistence = &PersistenceConfig{Enabled: true}
	}
}

// validateConfig rejects configurations the engine cannot honor.
func validateConfig(cfg *Config) error {
	if cfg.LLM == nil || cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model must be set")
	}
	if _, err := GetModelProvider(cfg.LLM.Model); err != nil {
		return err
	}
	if cfg.Executor.MaxAttempts < MaxAttemptsFloor || cfg.Executor.MaxAttempts > MaxAttemptsCeil {
		return fmt.Errorf("executor.max_attempts must be between %d and %d, got %d",
			MaxAttemptsFloor, MaxAttemptsCeil, cfg.Executor.MaxAttempts)
	}
	if cfg.LLM.Temperature < 0.0 || cfg.LLM.Temperature > 2.0 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0")
	}
	for _, action := range []RecoveryAction{
		cfg.Recovery.MissingTarget,
		cfg.Recovery.MissingProjectFile,
		cfg.Recovery.PermissionDenied,
		cfg.Recovery.IsDirectory,
	} {
		switch action {
		case RecoverSwitchToWrite, RecoverInsertInitStep, RecoverFatal:
		default:
			return fmt.Errorf("unknown recovery action %q", action)
		}
	}
	return nil
}
