// Package rules provides the declarative rule profile registry and the
// semantic validator that evaluates it against generated code.
//
// Rules are plain data records. Adding a rule means registering another
// profile, not adding another validation branch.
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"assistant/pkg/task"
)

// Pattern is one forbidden or required text pattern within a profile.
type Pattern struct {
	expr *regexp.Regexp

	// Description explains what the pattern detects or demands.
	Description string
	// SuggestedFix tells the correction prompt how to resolve a violation.
	SuggestedFix string
}

// NewPattern compiles a pattern. Panics on an invalid expression; built-in
// patterns are compile-time constants and file-loaded ones go through
// CompilePattern instead.
func NewPattern(expr, description, fix string) Pattern {
	return Pattern{
		expr:         regexp.MustCompile(expr),
		Description:  description,
		SuggestedFix: fix,
	}
}

// CompilePattern compiles a pattern, returning an error instead of panicking.
func CompilePattern(expr, description, fix string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return Pattern{expr: re, Description: description, SuggestedFix: fix}, nil
}

// Expr returns the pattern's source expression.
func (p Pattern) Expr() string {
	return p.expr.String()
}

// Selector decides whether a profile applies to a piece of code. Selectors
// must be pure over the code text.
type Selector func(code string) bool

// SelectAll applies a profile to every artifact.
func SelectAll(string) bool { return true }

// SelectMatching applies a profile to code matching expr.
func SelectMatching(expr string) Selector {
	re := regexp.MustCompile(expr)
	return re.MatchString
}

// RuleProfile is one declarative validation rule.
type RuleProfile struct {
	ID          string
	Description string

	// TaskTypes limits which request classifications list this profile in
	// the generation brief. Empty means all.
	TaskTypes []task.TaskType

	// Selector gates evaluation per artifact. Nil means always applicable.
	Selector Selector

	// ForbiddenPatterns yield a violation for every pattern present.
	ForbiddenPatterns []Pattern
	// RequiredPatterns yield a violation for every pattern absent.
	RequiredPatterns []Pattern

	Severity task.Severity
}

func (p *RuleProfile) appliesTo(code string) bool {
	if p.Selector == nil {
		return true
	}
	return p.Selector(code)
}

func (p *RuleProfile) appliesToTask(taskType task.TaskType) bool {
	if len(p.TaskTypes) == 0 {
		return true
	}
	for _, t := range p.TaskTypes {
		if t == taskType {
			return true
		}
	}
	return false
}

// Registry holds rule profiles in registration order. Evaluation order is
// registration order, which keeps violation lists stable across calls.
type Registry struct {
	mu       sync.RWMutex
	profiles []*RuleProfile
	byID     map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

// Register adds a profile. Re-registering an existing ID replaces the profile
// in place, preserving its evaluation position.
func (r *Registry) Register(profile *RuleProfile) error {
	if profile.ID == "" {
		return fmt.Errorf("rule profile has no ID")
	}
	if profile.Severity != task.SeverityError && profile.Severity != task.SeverityWarn {
		return fmt.Errorf("rule %s: unknown severity %q", profile.ID, profile.Severity)
	}
	if len(profile.ForbiddenPatterns) == 0 && len(profile.RequiredPatterns) == 0 {
		return fmt.Errorf("rule %s: no patterns", profile.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if i, exists := r.byID[profile.ID]; exists {
		r.profiles[i] = profile
		return nil
	}
	r.byID[profile.ID] = len(r.profiles)
	r.profiles = append(r.profiles, profile)
	return nil
}

// MustRegister is Register for built-in profiles.
func (r *Registry) MustRegister(profile *RuleProfile) {
	if err := r.Register(profile); err != nil {
		panic(err)
	}
}

// Profiles returns all registered profiles in evaluation order.
func (r *Registry) Profiles() []*RuleProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RuleProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Profile returns the profile with the given ID.
func (r *Registry) Profile(id string) (*RuleProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.profiles[i], true
}

// ProfilesForTask returns the profiles advisory for a task type, used to
// brief the generation prompt. It never filters execution.
func (r *Registry) ProfilesForTask(taskType task.TaskType) []*RuleProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*RuleProfile
	for _, p := range r.profiles {
		if p.appliesToTask(taskType) {
			out = append(out, p)
		}
	}
	return out
}

// ApplicableProfiles returns the profiles whose selector matches the code.
func (r *Registry) ApplicableProfiles(code string) []*RuleProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*RuleProfile
	for _, p := range r.profiles {
		if p.appliesTo(code) {
			out = append(out, p)
		}
	}
	return out
}

// ValidateCode evaluates every applicable profile against the code. Pure and
// deterministic: identical code and registry yield an identical, order-stable
// violation list.
func (r *Registry) ValidateCode(code string) task.ValidationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result task.ValidationResult
	for _, p := range r.profiles {
		if !p.appliesTo(code) {
			continue
		}
		for i := range p.ForbiddenPatterns {
			pat := &p.ForbiddenPatterns[i]
			loc := pat.expr.FindStringIndex(code)
			if loc == nil {
				continue
			}
			result.Violations = append(result.Violations, task.Violation{
				RuleID:       p.ID,
				Severity:     p.Severity,
				Message:      fmt.Sprintf("forbidden pattern found: %s", pat.Description),
				SuggestedFix: pat.SuggestedFix,
				Line:         lineAt(code, loc[0]),
			})
		}
		for i := range p.RequiredPatterns {
			pat := &p.RequiredPatterns[i]
			if pat.expr.MatchString(code) {
				continue
			}
			result.Violations = append(result.Violations, task.Violation{
				RuleID:       p.ID,
				Severity:     p.Severity,
				Message:      fmt.Sprintf("required pattern missing: %s", pat.Description),
				SuggestedFix: pat.SuggestedFix,
			})
		}
	}
	return result
}

// lineAt returns the 1-based line number of a byte offset.
func lineAt(code string, offset int) int {
	if offset > len(code) {
		offset = len(code)
	}
	return 1 + strings.Count(code[:offset], "\n")
}
