package planner

import (
	"fmt"
	"strings"

	"assistant/pkg/task"
)

// ValidateDependencies rejects plans with duplicate step IDs, dependencies
// on unknown step IDs, or self-dependencies.
func ValidateDependencies(steps []*task.Step) error {
	ids := make(map[string]bool, len(steps))
	for _, s := range steps {
		if ids[s.ID] {
			return fmt.Errorf("duplicate step id %s", s.ID)
		}
		ids[s.ID] = true
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if !ids[dep] {
				return fmt.Errorf("step %s depends on unknown step %s", s.ID, dep)
			}
			if dep == s.ID {
				return fmt.Errorf("step %s depends on itself", s.ID)
			}
		}
	}
	return nil
}

// ReorderStepsByDependencies performs a stable topological sort: every step
// comes after all steps it depends on, and steps with no ordering constraint
// between them keep their input order. A dependency cycle is an error; it is
// never silently broken.
func ReorderStepsByDependencies(steps []*task.Step) ([]*task.Step, error) {
	emitted := make(map[string]bool, len(steps))
	ordered := make([]*task.Step, 0, len(steps))

	for len(ordered) < len(steps) {
		progressed := false
		for _, s := range steps {
			if emitted[s.ID] {
				continue
			}
			ready := true
			for _, dep := range s.DependsOn {
				if !emitted[dep] {
					ready = false
					break
				}
			}
			if ready {
				emitted[s.ID] = true
				ordered = append(ordered, s)
				progressed = true
				break
			}
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle among steps: %s", strings.Join(unemitted(steps, emitted), ", "))
		}
	}
	return ordered, nil
}

func unemitted(steps []*task.Step, emitted map[string]bool) []string {
	var ids []string
	for _, s := range steps {
		if !emitted[s.ID] {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
