// Package planner turns a natural-language request into an ordered,
// validated plan of steps.
package planner

import (
	"context"
	"errors"
	"fmt"

	"assistant/pkg/llm"
	"assistant/pkg/logx"
	"assistant/pkg/preflight"
	"assistant/pkg/rules"
	"assistant/pkg/task"
	"assistant/pkg/workspace"
)

// ProgressFunc receives the pre-flight report before plan generation.
type ProgressFunc func(message string)

// ConversationSource supplies the session conversation so far, carried into
// the draft prompt.
type ConversationSource interface {
	Messages() []llm.CompletionMessage
}

// Planner builds plans against one workspace and rule registry.
type Planner struct {
	client       llm.Client
	registry     *rules.Registry
	checker      *preflight.Checker
	progress     ProgressFunc
	conversation ConversationSource
	logger       *logx.Logger
}

// New creates a planner. An empty sourceRoot falls back to the default.
func New(client llm.Client, registry *rules.Registry, store workspace.FileStore, sourceRoot string, progress ProgressFunc) *Planner {
	if progress == nil {
		progress = func(string) {}
	}
	return &Planner{
		client:   client,
		registry: registry,
		checker:  preflight.NewChecker(registry, store, sourceRoot),
		progress: progress,
		logger:   logx.NewLogger("planner"),
	}
}

// SetConversation attaches the session conversation; draft prompts carry
// its messages.
func (p *Planner) SetConversation(src ConversationSource) {
	p.conversation = src
}

// BuildPlan classifies the request, runs the pre-flight check, drafts a step
// sequence via the LLM, and orders it by dependency. Malformed or cyclic
// structure is fatal PLAN_INVALID.
func (p *Planner) BuildPlan(ctx context.Context, request string) (*task.Plan, error) {
	taskType := Classify(request)
	p.logger.Info("request classified as %s", taskType)

	pf := p.checker.CheckRequest(request, taskType)
	p.progress(pf.Report)
	if !pf.Approved {
		return nil, task.NewDomainError(task.ErrPlanInvalid, "",
			fmt.Errorf("pre-flight rejected the request: %s", pf.Report))
	}

	raw, err := p.draftSteps(ctx, request, taskType, pf.ApplicableRules)
	if err != nil {
		return nil, err
	}

	plan := task.NewPlan(request, taskType)
	plan.RuleIDs = pf.ApplicableRules
	plan.Steps = raw

	if err := ValidateDependencies(plan.Steps); err != nil {
		return nil, task.NewDomainError(task.ErrPlanInvalid, "", err)
	}
	ordered, err := ReorderStepsByDependencies(plan.Steps)
	if err != nil {
		return nil, task.NewDomainError(task.ErrPlanInvalid, "", err)
	}
	plan.Steps = ordered

	p.logger.Info("plan %s: %d step(s)", plan.ID, len(plan.Steps))
	return plan, nil
}

// PreFlight exposes the request-level check without drafting a plan.
func (p *Planner) PreFlight(request string) *preflight.Result {
	return p.checker.CheckRequest(request, Classify(request))
}

var errEmptyPlan = errors.New("the model produced an empty step list")
