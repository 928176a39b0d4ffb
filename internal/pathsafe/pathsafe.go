// Package pathsafe validates relative log paths before any filesystem
// operation touches them. Validation is pure: no side effects, no
// filesystem access.
package pathsafe

import (
	"strings"

	"github.com/MadlinksCoding/routelog/internal/errs"
)

// Distinguishable rejection causes. All carry errs.PathSecurity.
var (
	ErrEmpty      = errs.New(errs.PathSecurity, "path is empty or whitespace")
	ErrNullByte   = errs.New(errs.PathSecurity, "path contains a null byte")
	ErrAbsolute   = errs.New(errs.PathSecurity, "absolute paths are not allowed")
	ErrTraversal  = errs.New(errs.PathSecurity, "parent traversal is not allowed")
	ErrDotSegment = errs.New(errs.PathSecurity, "dot-only path segments are not allowed")
)

// Normalize rewrites separators to forward slashes and collapses runs of
// slashes, so mixed-separator tricks cannot slip past the segment checks.
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, "\\", "/")
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return strings.TrimSuffix(path, "/")
}

// EnsureRelative normalizes path and rejects anything that could escape
// the log root. Returns the normalized path on success. Idempotent:
// EnsureRelative(EnsureRelative(p)) yields the same result.
func EnsureRelative(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", ErrNullByte
	}
	norm := Normalize(path)
	if norm == "" {
		return "", ErrEmpty
	}
	if strings.HasPrefix(norm, "/") || hasDrivePrefix(norm) {
		return "", ErrAbsolute
	}
	for _, seg := range strings.Split(norm, "/") {
		switch {
		case seg == "..":
			return "", ErrTraversal
		case isDotOnly(seg):
			return "", ErrDotSegment
		}
	}
	return norm, nil
}

// hasDrivePrefix detects Windows-style absolute paths ("C:/...").
func hasDrivePrefix(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isDotOnly reports whether seg consists solely of dots (".", "...").
// ".." is handled separately as traversal.
func isDotOnly(seg string) bool {
	if seg == "" || seg == ".." {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] != '.' {
			return false
		}
	}
	return true
}
