package utils

import "testing"

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "clean path unchanged",
			input:    "src/components/Button.tsx",
			expected: "src/components/Button.tsx",
		},
		{
			name:     "surrounding backticks",
			input:    "`src/index.ts`",
			expected: "src/index.ts",
		},
		{
			name:     "quotes and trailing comma",
			input:    "\"src/app.ts\",",
			expected: "src/app.ts",
		},
		{
			name:     "smart quotes",
			input:    "“src/utils/date.ts”",
			expected: "src/utils/date.ts",
		},
		{
			name:     "trailing ellipsis",
			input:    "src/routes/index.ts...",
			expected: "src/routes/index.ts",
		},
		{
			name:     "unicode ellipsis",
			input:    "src/routes/index.ts…",
			expected: "src/routes/index.ts",
		},
		{
			name:     "placeholder segments rewritten",
			input:    "path/to/Button.tsx",
			expected: "src/Button.tsx",
		},
		{
			name:     "placeholder with leading slash",
			input:    "/path/to/component.ts",
			expected: "/src/component.ts",
		},
		{
			name:     "placeholder mixed with real segments",
			input:    "some/dir/components/Card.tsx",
			expected: "src/components/Card.tsx",
		},
		{
			name:     "surrounding whitespace",
			input:    "  src/main.ts  ",
			expected: "src/main.ts",
		},
		{
			name:     "stacked junk",
			input:    " `\"src/a.ts\"`, ",
			expected: "src/a.ts",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only junk",
			input:    "``",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizePath(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizePath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// Sanitization must be a fixed point: applying it to its own output changes
// nothing.
func TestSanitizePathIdempotent(t *testing.T) {
	inputs := []string{
		"src/components/Button.tsx",
		"`path/to/file.ts`",
		"\"src/app.ts\",",
		"  /some/dir/x.ts...  ",
		"",
		"weird   name.ts",
	}
	for _, input := range inputs {
		once := SanitizePath(input)
		twice := SanitizePath(once)
		if once != twice {
			t.Errorf("SanitizePath not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestHasPlaceholderSegment(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"path/to/file.ts", true},
		{"/path/to/file.ts", true},
		{"some/dir/file.ts", true},
		{"src/components/Button.tsx", false},
		{"src/path.ts", false}, // filename is not a segment
		{"tools/build.sh", false},
	}
	for _, tt := range tests {
		if got := HasPlaceholderSegment(tt.path); got != tt.expected {
			t.Errorf("HasPlaceholderSegment(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestHasExtension(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"src/app.ts", true},
		{"Makefile", false},
		{"src/.env", false},
		{"src/app.", false},
		{"a.b.c.tsx", true},
	}
	for _, tt := range tests {
		if got := HasExtension(tt.path); got != tt.expected {
			t.Errorf("HasExtension(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestMalformedPathDetectors(t *testing.T) {
	if !HasConsecutiveSpaces("src/my  file.ts") {
		t.Error("expected consecutive spaces to be detected")
	}
	if HasConsecutiveSpaces("src/my file.ts") {
		t.Error("single space is not a truncation artifact")
	}
	if !HasEllipsis("src/compo....ts") {
		t.Error("expected ellipsis to be detected")
	}
	if !HasEllipsis("src/file…ts") {
		t.Error("expected unicode ellipsis to be detected")
	}
}

func TestCountTokensSimple(t *testing.T) {
	if got := CountTokensSimple(""); got != 0 {
		t.Errorf("CountTokensSimple(\"\") = %d, want 0", got)
	}
	short := CountTokensSimple("hello world")
	long := CountTokensSimple("hello world, this is a much longer sentence with many more words in it")
	if short <= 0 {
		t.Errorf("expected positive count for non-empty text, got %d", short)
	}
	if long <= short {
		t.Errorf("longer text should count more tokens: short=%d long=%d", short, long)
	}
}
