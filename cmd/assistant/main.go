// Command assistant turns a natural-language coding request into a
// validated, executed file-modification plan against a project workspace.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"assistant/pkg/config"
	"assistant/pkg/llm/factory"
	llmmetrics "assistant/pkg/llm/middleware/metrics"
	"assistant/pkg/logx"
	"assistant/pkg/metrics"
	"assistant/pkg/persistence"
	"assistant/pkg/rules"
	"assistant/pkg/session"
	"assistant/pkg/task"
	"assistant/pkg/workspace"
)

func main() {
	var (
		workspaceDir string
		maxAttempts  int
		dryRun       bool
		model        string
		setSecret    string
		usagePlan    string
		debug        bool
	)
	flag.StringVar(&workspaceDir, "workspace", ".", "Project workspace root")
	flag.IntVar(&maxAttempts, "max-attempts", 0, "Correction attempts per step (1-5, 0 uses config)")
	flag.BoolVar(&dryRun, "dry-run", false, "Generate and print the plan without executing it")
	flag.StringVar(&model, "model", "", "Model override (default from config)")
	flag.StringVar(&setSecret, "set-secret", "", "Store an API key (e.g. ANTHROPIC_API_KEY) and exit")
	flag.StringVar(&usagePlan, "usage", "", "Print token usage for a plan ID and exit (requires metrics)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging (DEBUG_DOMAINS filters domains)")
	flag.Parse()

	if debug {
		logx.SetDebug(true, nil)
	}

	if err := run(workspaceDir, maxAttempts, dryRun, model, setSecret, usagePlan, strings.Join(flag.Args(), " ")); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(workspaceDir string, maxAttempts int, dryRun bool, model, setSecret, usagePlan, request string) error {
	logger := logx.NewLogger("assistant")

	absRoot, err := filepath.Abs(workspaceDir)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace %s: %w", workspaceDir, err)
	}
	if err := config.LoadConfig(absRoot); err != nil {
		return err
	}

	if setSecret != "" {
		return storeSecret(absRoot, setSecret)
	}
	if usagePlan != "" {
		return printUsage(usagePlan)
	}
	if strings.TrimSpace(request) == "" {
		return fmt.Errorf("usage: assistant [flags] <coding request>")
	}

	if err := loadSecrets(absRoot); err != nil {
		return err
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if maxAttempts > 0 {
		cfg.Executor.MaxAttempts = maxAttempts
	}

	registry := rules.DefaultRegistry()
	rulesPath := filepath.Join(absRoot, config.ProjectConfigDir, "rules.yaml")
	if _, err := os.Stat(rulesPath); err == nil {
		if err := registry.LoadFile(rulesPath); err != nil {
			return logx.Wrap(err, "failed to load project rules")
		}
		logger.Info("loaded project rules from %s", rulesPath)
	}

	ws, err := workspace.New(absRoot)
	if err != nil {
		return err
	}

	if cfg.Persistence != nil && cfg.Persistence.Enabled {
		dbPath := cfg.Persistence.DBPath
		if dbPath == "" {
			dbPath = filepath.Join(absRoot, config.ProjectConfigDir, "session.db")
		}
		if err := persistence.Initialize(dbPath, uuid.New().String()); err != nil {
			return err
		}
		defer func() { _ = persistence.Close() }()
	}

	opts := factory.Options{Logger: logger.WithComponent("llm")}
	var labels *llmmetrics.SessionLabels
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		labels = llmmetrics.NewSessionLabels()
		opts.Recorder = llmmetrics.NewPrometheusRecorder()
		opts.Labels = labels
	}
	client, err := factory.NewClient(cfg, opts)
	if err != nil {
		return err
	}

	progress := func(msg string) { fmt.Println(msg) }
	sess := session.New(cfg, client, registry, ws, progress)
	if labels != nil {
		sess.SetLabels(labels)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan, err := sess.GeneratePlan(ctx, request)
	if err != nil {
		return err
	}
	printPlan(plan)
	if dryRun {
		return nil
	}

	result := sess.ExecutePlan(ctx, plan)
	printResult(result)
	if result.Err != nil {
		dumpRecentLogs()
		return result.Err
	}
	return nil
}

// dumpRecentLogs replays the retained log entries to stderr after a failed
// run, so a failure report carries its own diagnostics.
func dumpRecentLogs() {
	if !logx.IsDebugEnabled() {
		return
	}
	entries := logx.RecentEntries("")
	fmt.Fprintf(os.Stderr, "\n--- last %d log entries ---\n", len(entries))
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(os.Stderr, "[%s] [%s] %s: %s\n", e.Timestamp, e.Component, e.Level, e.Message)
	}
}

// printUsage reports aggregated token counts for a past plan from the
// Prometheus server configured for this project.
func printUsage(planID string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	if cfg.Metrics == nil || !cfg.Metrics.Enabled || cfg.Metrics.PrometheusURL == "" {
		return fmt.Errorf("metrics are not enabled for this project")
	}
	svc, err := metrics.NewQueryService(cfg.Metrics.PrometheusURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	usage, err := svc.GetPlanMetrics(ctx, planID)
	if err != nil {
		return err
	}
	fmt.Printf("plan %s: %d request(s), %d prompt + %d completion = %d tokens\n",
		usage.PlanID, usage.Requests, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	return nil
}

func printPlan(plan *task.Plan) {
	fmt.Printf("\nplan %s (%s), %d step(s):\n", plan.ID, plan.TaskType, len(plan.Steps))
	for i, step := range plan.Steps {
		fmt.Printf("  %d. [%s] %s %s", i+1, step.ID, step.Kind, step.Target())
		if len(step.DependsOn) > 0 {
			fmt.Printf(" (after %s)", strings.Join(step.DependsOn, ", "))
		}
		fmt.Println()
	}
	fmt.Println()
}

func printResult(result *session.Result) {
	fmt.Printf("\ncompleted %d/%d step(s)\n", result.Completed, len(result.Plan.Steps))
	if result.Failed != nil {
		fmt.Printf("step %s failed: %s\n", result.Failed.ID, result.Failed.LastError)
		for i := range result.Failed.Attempts {
			attempt := &result.Failed.Attempts[i]
			fmt.Printf("  attempt %d: %d violation(s)\n", attempt.Index, len(attempt.Violations))
			for j := range attempt.Violations {
				v := &attempt.Violations[j]
				fmt.Printf("    [%s/%s] %s\n", v.RuleID, v.Severity, v.Message)
			}
		}
	}
}

// loadSecrets decrypts the project secrets file when present. Keys fall back
// to environment variables otherwise.
func loadSecrets(projectDir string) error {
	if !config.SecretsFileExists(projectDir) {
		return nil
	}
	password, err := secretsPassword()
	if err != nil {
		return err
	}
	secrets, err := config.DecryptSecretsFile(projectDir, password)
	if err != nil {
		return err
	}
	config.SetDecryptedSecrets(secrets)
	return nil
}

func storeSecret(projectDir, name string) error {
	fmt.Fprintf(os.Stderr, "value for %s: ", name)
	value, err := term.ReadPassword(syscall.Stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}

	password, err := secretsPassword()
	if err != nil {
		return err
	}

	secrets := map[string]string{}
	if config.SecretsFileExists(projectDir) {
		existing, err := config.DecryptSecretsFile(projectDir, password)
		if err != nil {
			return err
		}
		secrets = existing
	}
	secrets[name] = string(value)

	if err := config.EncryptSecretsFile(projectDir, password, secrets); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "stored %s\n", name)
	return nil
}

func secretsPassword() (string, error) {
	if password := os.Getenv("ASSISTANT_SECRETS_PASSWORD"); password != "" {
		return password, nil
	}
	fmt.Fprint(os.Stderr, "secrets password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
