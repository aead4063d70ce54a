package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"assistant/pkg/task"
)

// PatternSpec is the file representation of one pattern.
type PatternSpec struct {
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
	Fix         string `yaml:"fix,omitempty"`
}

// ProfileSpec is the file representation of one rule profile.
type ProfileSpec struct {
	ID          string        `yaml:"id"`
	Description string        `yaml:"description,omitempty"`
	TaskTypes   []string      `yaml:"task_types,omitempty"`
	AppliesTo   string        `yaml:"applies_to,omitempty"` // regex over the artifact text
	Severity    string        `yaml:"severity"`
	Forbidden   []PatternSpec `yaml:"forbidden,omitempty"`
	Required    []PatternSpec `yaml:"required,omitempty"`
}

type rulesFile struct {
	Rules []ProfileSpec `yaml:"rules"`
}

// LoadFile layers project-defined profiles from a YAML file onto the
// registry. IDs matching built-in profiles replace them.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	for i := range file.Rules {
		profile, err := compileSpec(&file.Rules[i])
		if err != nil {
			return fmt.Errorf("rules file %s: %w", path, err)
		}
		if err := r.Register(profile); err != nil {
			return fmt.Errorf("rules file %s: %w", path, err)
		}
	}
	return nil
}

func compileSpec(spec *ProfileSpec) (*RuleProfile, error) {
	profile := &RuleProfile{
		ID:          spec.ID,
		Description: spec.Description,
		Severity:    task.Severity(spec.Severity),
	}

	for _, t := range spec.TaskTypes {
		taskType := task.TaskType(t)
		if !validTaskType(taskType) {
			return nil, fmt.Errorf("rule %s: unknown task type %q", spec.ID, t)
		}
		profile.TaskTypes = append(profile.TaskTypes, taskType)
	}

	if spec.AppliesTo != "" {
		sel, err := CompilePattern(spec.AppliesTo, "", "")
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", spec.ID, err)
		}
		profile.Selector = sel.expr.MatchString
	}

	for _, p := range spec.Forbidden {
		pat, err := CompilePattern(p.Pattern, p.Description, p.Fix)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", spec.ID, err)
		}
		profile.ForbiddenPatterns = append(profile.ForbiddenPatterns, pat)
	}
	for _, p := range spec.Required {
		pat, err := CompilePattern(p.Pattern, p.Description, p.Fix)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", spec.ID, err)
		}
		profile.RequiredPatterns = append(profile.RequiredPatterns, pat)
	}

	return profile, nil
}

func validTaskType(t task.TaskType) bool {
	for _, known := range task.ValidTaskTypes() {
		if t == known {
			return true
		}
	}
	return false
}
