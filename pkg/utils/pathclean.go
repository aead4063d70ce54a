// Package utils provides small shared helpers: path sanitization for
// LLM-produced file paths and tiktoken-based token counting.
package utils

import (
	"strings"
)

// Characters stripped from the ends of an LLM-produced path. Models wrap
// paths in markdown quoting or leave trailing punctuation from prose.
const strayPathRunes = "`\"'“”‘’"

// placeholderSegments are directory names models emit as stand-ins for a
// real location ("path/to/file.ts", "some/dir/..."). They are rewritten to
// the project's conventional source root.
//
//nolint:gochecknoglobals // static rewrite table
var placeholderSegments = map[string]bool{
	"path": true,
	"to":   true,
	"some": true,
	"dir":  true,
}

// SanitizePath normalizes a raw LLM-produced file path. It is total and
// idempotent: it never fails and always returns a best-effort string, even
// for fully malformed input.
func SanitizePath(raw string) string {
	return SanitizePathWithRoot(raw, "src")
}

// SanitizePathWithRoot is SanitizePath with an explicit source root for the
// placeholder rewrite.
func SanitizePathWithRoot(raw, sourceRoot string) string {
	s := strings.TrimSpace(raw)

	// Strip surrounding quotes/backticks and trailing artifacts until a
	// fixed point; a single pass misses stacked junk like `"src/a.ts",`.
	for {
		trimmed := strings.Trim(s, strayPathRunes)
		trimmed = strings.TrimSuffix(trimmed, "...")
		trimmed = strings.TrimSuffix(trimmed, "…")
		trimmed = strings.TrimSuffix(trimmed, ",")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == s {
			break
		}
		s = trimmed
	}

	if s == "" {
		return s
	}

	// Rewrite generic placeholder directory segments to the source root.
	// Consecutive placeholders collapse into a single root segment.
	leadingSlash := strings.HasPrefix(s, "/")
	segments := strings.Split(strings.TrimPrefix(s, "/"), "/")
	var out []string
	for i, seg := range segments {
		isLast := i == len(segments)-1
		if !isLast && placeholderSegments[strings.ToLower(seg)] {
			if len(out) == 0 || out[len(out)-1] != sourceRoot {
				out = append(out, sourceRoot)
			}
			continue
		}
		out = append(out, seg)
	}

	cleaned := strings.Join(out, "/")
	if leadingSlash {
		cleaned = "/" + cleaned
	}
	return cleaned
}

// HasEllipsis reports whether the path still contains an ellipsis marker.
func HasEllipsis(path string) bool {
	return strings.Contains(path, "...") || strings.Contains(path, "…")
}

// HasConsecutiveSpaces reports whether the path contains two or more
// consecutive spaces, a common truncation artifact.
func HasConsecutiveSpaces(path string) bool {
	return strings.Contains(path, "  ")
}

// HasPlaceholderSegment reports whether any directory segment of the path
// is a generic placeholder.
func HasPlaceholderSegment(path string) bool {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, seg := range segments {
		if i == len(segments)-1 {
			break // filename is never treated as a placeholder
		}
		if placeholderSegments[strings.ToLower(seg)] {
			return true
		}
	}
	return false
}

// HasExtension reports whether the final path segment carries a file
// extension.
func HasExtension(path string) bool {
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	dot := strings.LastIndex(last, ".")
	return dot > 0 && dot < len(last)-1
}
