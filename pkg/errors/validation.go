package errors

import (
	"io/fs"
	"slices"
	"strings"
	"unicode"
)

// MaxFragmentIDLength bounds fragment IDs taken from flags, query strings
// and request bodies.
const MaxFragmentIDLength = 256

const maxStoryPathLength = 500

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// ValidateFragmentID rejects IDs a user could not have meant: blank ones,
// ones longer than [MaxFragmentIDLength] bytes and ones with control
// characters. Whether the ID exists in a story is checked elsewhere.
func ValidateFragmentID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return New(ErrCodeInvalidInput, "fragment ID cannot be empty")
	case len(id) > MaxFragmentIDLength:
		return New(ErrCodeInvalidInput, "fragment ID too long (max %d characters)", MaxFragmentIDLength)
	case hasControl(id):
		return New(ErrCodeInvalidInput, "fragment ID contains control characters")
	}
	return nil
}

// ValidatePath checks a story path requested from the served stories
// directory. It must be a clean, slash-separated relative path with no ".."
// elements, so joining it onto the directory cannot escape it.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return New(ErrCodeInvalidPath, "path cannot be empty")
	case len(path) > maxStoryPathLength:
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxStoryPathLength)
	case hasControl(path):
		return New(ErrCodeInvalidPath, "path contains control characters")
	case strings.ContainsRune(path, '\\'):
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	case strings.Contains(path, ".."):
		// Also catches escaped separators such as "..%2F" left in raw paths.
		return New(ErrCodeInvalidPath, "path cannot contain ..")
	case !fs.ValidPath(path):
		return New(ErrCodeInvalidPath, "path %q must be relative and free of . elements", path)
	}
	return nil
}

// ValidateFormat checks format, case-insensitively and ignoring surrounding
// space, against the allowed output formats.
func ValidateFormat(format string, allowed ...string) error {
	norm := strings.ToLower(strings.TrimSpace(format))
	if norm == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if slices.Contains(allowed, norm) {
		return nil
	}
	return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
}
