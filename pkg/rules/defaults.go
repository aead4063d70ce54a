package rules

import "assistant/pkg/task"

// DefaultRegistry returns a registry preloaded with the built-in profiles.
// Project rule files layer on top via LoadFile.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(&RuleProfile{
		ID:          "props-typing",
		Description: "Component props must be declared as a typed interface",
		TaskTypes:   []task.TaskType{task.TaskComponent},
		Selector:    SelectMatching(`(?m)(export\s+(default\s+)?(function|const)\s+[A-Z]\w*|React\.FC|JSX\.Element)`),
		RequiredPatterns: []Pattern{
			NewPattern(`(?m)(interface|type)\s+\w*Props\b`,
				"a typed Props interface or type alias",
				"declare an interface <Name>Props and type the component's props with it"),
		},
		ForbiddenPatterns: []Pattern{
			NewPattern(`(?m)from\s+['"](zod|yup|joi|prop-types)['"]`,
				"a runtime schema library used for simple component props",
				"remove the runtime schema dependency and rely on the typed Props interface"),
		},
		Severity: task.SeverityError,
	})

	r.MustRegister(&RuleProfile{
		ID:          "merge-conflict-markers",
		Description: "Generated code must not contain merge conflict markers",
		ForbiddenPatterns: []Pattern{
			NewPattern(`(?m)^(<{7}|={7}|>{7})`,
				"merge conflict marker",
				"remove the conflict markers and emit only the resolved code"),
		},
		Severity: task.SeverityError,
	})

	r.MustRegister(&RuleProfile{
		ID:          "truncated-output",
		Description: "Generated code must be complete, not elided",
		ForbiddenPatterns: []Pattern{
			NewPattern(`(?m)^\s*(//|#)?\s*\.\.\.\s*(rest|remaining|existing|rest of)`,
				"elision marker standing in for real code",
				"emit the full file content with no elided sections"),
		},
		Severity: task.SeverityError,
	})

	r.MustRegister(&RuleProfile{
		ID:          "hardcoded-secret",
		Description: "Credentials must come from configuration, not literals",
		ForbiddenPatterns: []Pattern{
			NewPattern(`(?im)(api[_-]?key|secret|password|token)\s*[:=]\s*["'][A-Za-z0-9+/_-]{16,}["']`,
				"hardcoded credential literal",
				"read the credential from configuration or the environment instead"),
		},
		Severity: task.SeverityError,
	})

	r.MustRegister(&RuleProfile{
		ID:          "test-assertions",
		Description: "Test files must assert something",
		TaskTypes:   []task.TaskType{task.TaskTest},
		Selector:    SelectMatching(`(?m)\b(describe|it|test)\s*\(`),
		RequiredPatterns: []Pattern{
			NewPattern(`(?m)\b(expect|assert)\s*[.(]`,
				"at least one assertion",
				"add expect()/assert calls covering the behavior under test"),
		},
		Severity: task.SeverityError,
	})

	r.MustRegister(&RuleProfile{
		ID:          "no-console-debug",
		Description: "Leftover console debugging",
		ForbiddenPatterns: []Pattern{
			NewPattern(`(?m)console\.(log|debug)\(`,
				"console debug statement",
				"remove the console call or route it through the project logger"),
		},
		Severity: task.SeverityWarn,
	})

	r.MustRegister(&RuleProfile{
		ID:          "explicit-any",
		Description: "Untyped escape hatches in typed code",
		Selector:    SelectMatching(`(?m)(interface|type)\s+\w+|:\s*\w+(\[\])?\s*[;,)]`),
		ForbiddenPatterns: []Pattern{
			NewPattern(`(?m):\s*any\b`,
				"explicit any annotation",
				"replace any with a concrete type or a generic parameter"),
		},
		Severity: task.SeverityWarn,
	})

	return r
}
