// Package session drives one plan from request to completion: plan
// generation, sequential step execution in dependency order, and audit
// persistence. Exactly one plan is active per session.
package session

import (
	"context"
	"fmt"

	"assistant/pkg/config"
	"assistant/pkg/contextmgr"
	"assistant/pkg/executor"
	"assistant/pkg/llm"
	"assistant/pkg/logx"
	"assistant/pkg/persistence"
	"assistant/pkg/planner"
	"assistant/pkg/recovery"
	"assistant/pkg/rules"
	"assistant/pkg/task"
	"assistant/pkg/workspace"
)

// ProgressFunc receives progress updates: the pre-flight report before plan
// generation and one line per correction attempt.
type ProgressFunc func(message string)

// PhaseLabels receives the active plan ID and engine phase, so LLM metrics
// recorded during this session carry them as labels.
type PhaseLabels interface {
	SetPlan(planID string)
	SetPhase(phase string)
}

// Result is the outcome of one session run.
type Result struct {
	Plan      *task.Plan
	Completed int
	Failed    *task.Step
	Err       error
}

// Session owns one plan execution end to end.
type Session struct {
	cfg      config.Config
	planner  *planner.Planner
	executor *executor.Executor
	ctxmgr   *contextmgr.ContextManager
	labels   PhaseLabels
	persist  bool
	logger   *logx.Logger
}

// New wires a session from its collaborators. The session conversation feeds
// both the planner's draft prompt and the executor's generation and
// correction prompts.
func New(cfg config.Config, client llm.Client, registry *rules.Registry, ws *workspace.Workspace, progress ProgressFunc) *Session {
	if progress == nil {
		progress = func(string) {}
	}
	runner := workspace.NewLocalRunner(ws, cfg.LLM.Timeout)
	strategist := recovery.NewStrategist(*cfg.Recovery)

	s := &Session{
		cfg:      cfg,
		planner:  planner.New(client, registry, ws, cfg.SourceRoot, planner.ProgressFunc(progress)),
		executor: executor.New(client, registry, ws, runner, strategist, cfg.SourceRoot, cfg.Executor.MaxAttempts, executor.ProgressFunc(progress)),
		ctxmgr:   contextmgr.New(cfg.LLM.PromptBudget),
		persist:  cfg.Persistence != nil && cfg.Persistence.Enabled,
		logger:   logx.NewLogger("session"),
	}
	s.planner.SetConversation(s.ctxmgr)
	s.executor.SetConversation(s.ctxmgr)
	return s
}

// SetLabels attaches a metrics label sink; the session keeps it pointed at
// the current plan and phase.
func (s *Session) SetLabels(labels PhaseLabels) {
	s.labels = labels
}

func (s *Session) setPhase(phase string) {
	if s.labels != nil {
		s.labels.SetPhase(phase)
	}
}

// GeneratePlan builds and records the plan for a request. The request and a
// plan summary seed the session conversation that later generations see.
func (s *Session) GeneratePlan(ctx context.Context, request string) (*task.Plan, error) {
	s.ctxmgr.Clear()
	s.setPhase("planning")

	plan, err := s.planner.BuildPlan(ctx, request)
	if err != nil {
		return nil, err
	}
	if s.labels != nil {
		s.labels.SetPlan(plan.ID)
	}

	s.ctxmgr.AddMessage(llm.RoleUser, request)
	s.ctxmgr.AddMessage(llm.RoleAssistant,
		fmt.Sprintf("planned %d step(s) for this request", len(plan.Steps)))

	if s.persist {
		if err := persistence.SavePlan(plan); err != nil {
			s.logger.Warn("failed to persist plan %s: %v", plan.ID, err)
		}
	}
	return plan, nil
}

// ExecutePlan runs the plan's steps sequentially in dependency order,
// halting at the first failure. The failed step and its attempt history are
// carried in the result.
func (s *Session) ExecutePlan(ctx context.Context, plan *task.Plan) *Result {
	result := &Result{Plan: plan}
	done := make(map[string]bool, len(plan.Steps))
	s.setPhase("executing")

	for _, step := range plan.Steps {
		// Ordered by the planner, but a halted dependency still must
		// never let a dependent run.
		if unmet := unmetDependency(step, done); unmet != "" {
			result.Failed = step
			result.Err = task.NewDomainError(task.ErrPlanInvalid, step.ID,
				fmt.Errorf("dependency %s did not complete", unmet))
			break
		}
		if err := ctx.Err(); err != nil {
			result.Err = err
			break
		}

		stepResult, err := s.executor.ExecuteStep(ctx, step)
		if s.persist {
			if perr := persistence.SaveStepOutcome(plan.ID, step); perr != nil {
				s.logger.Warn("failed to persist step %s: %v", step.ID, perr)
			}
		}
		if err != nil {
			result.Failed = step
			result.Err = err
			break
		}

		done[step.ID] = true
		result.Completed++
		s.logger.Info("step %s done (%d correction attempt(s))", step.ID, len(stepResult.Attempts))
		s.ctxmgr.AddMessage(llm.RoleAssistant,
			fmt.Sprintf("step %s (%s %s) completed", step.ID, step.Kind, step.Target()))
		s.ctxmgr.CompactIfNeeded()
	}

	s.ctxmgr.Clear()
	return result
}

// Run is GeneratePlan followed by ExecutePlan.
func (s *Session) Run(ctx context.Context, request string) *Result {
	plan, err := s.GeneratePlan(ctx, request)
	if err != nil {
		return &Result{Err: err}
	}
	return s.ExecutePlan(ctx, plan)
}

func unmetDependency(step *task.Step, done map[string]bool) string {
	for _, dep := range step.DependsOn {
		if !done[dep] {
			return dep
		}
	}
	return ""
}
