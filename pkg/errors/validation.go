package errors

import (
	"strings"
	"unicode"
)

// ValidateFocusID validates a focus identifier before it is used to scope a
// layer fetch. A malformed focus id must never reach the analysis provider;
// navigation operations treat a validation failure as a no-op.
//
// The validation rules are intentionally conservative:
//   - No control characters
//   - No path traversal sequences (.., //, backslash)
//   - No null bytes
//   - Maximum length of 256 characters
//
// An empty focus id is valid: top-level layers have no focus.
func ValidateFocusID(id string) error {
	if id == "" {
		return nil
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidFocus, "focus id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFocus, "focus id contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidFocus, "focus id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateModulePath validates a module path before a child-file fetch.
// Module paths are relative, slash-separated, and must not escape the
// analyzed project root.
func ValidateModulePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "module path cannot be empty")
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "module path must be relative")
	}

	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "module path must not contain %q", "..")
		}
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "module path contains invalid control characters")
		}
	}

	return nil
}
