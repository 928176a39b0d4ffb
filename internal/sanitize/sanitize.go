// Package sanitize holds the leaf validation utilities the engine
// consumes. Every function is total: invalid input yields a zero value
// and false, never a panic or error.
package sanitize

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

var validate = validator.New()

// Integer converts v to an int. Floats with fractional parts and
// non-numeric strings fail.
func Integer(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Boolean converts v to a bool ("true"/"false"/1/0 accepted).
func Boolean(v any) (bool, bool) {
	if v == nil {
		return false, false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// String converts scalar v to a string. Composite values fail.
func String(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}

// IsPlainObject reports whether v is a string-keyed map.
func IsPlainObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return validate.Var(s, "required,email") == nil
}

// URL reports whether s is a valid absolute URL.
func URL(s string) bool {
	return validate.Var(s, "required,url") == nil
}

// IP reports whether s is a valid IPv4 or IPv6 address.
func IP(s string) bool {
	return validate.Var(s, "required,ip") == nil
}
