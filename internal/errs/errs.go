package errs

import (
	"errors"
	"fmt"
)

// Class identifies the failure category of an engine error. Callers
// branch on Class (via Is) instead of string-matching messages.
type Class string

const (
	Validation   Class = "validation"
	PathSecurity Class = "path_security"
	RateLimit    Class = "rate_limit"
	Write        Class = "write"
	Permission   Class = "permission"
	Encryption   Class = "encryption"
	Escalation   Class = "escalation"
)

// E is a classed error. It may wrap an underlying cause.
type E struct {
	Class Class
	Msg   string
	Err   error
}

func (e *E) Error() string {
	if e.Err != nil {
		return string(e.Class) + ": " + e.Msg + ": " + e.Err.Error()
	}
	return string(e.Class) + ": " + e.Msg
}

func (e *E) Unwrap() error { return e.Err }

// New builds a classed error with a formatted message.
func New(class Class, format string, args ...any) *E {
	return &E{Class: class, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a class and message to an underlying error.
// Returns nil if err is nil.
func Wrap(class Class, err error, format string, args ...any) *E {
	if err == nil {
		return nil
	}
	return &E{Class: class, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether any error in err's chain carries the given class.
func Is(err error, class Class) bool {
	var e *E
	for errors.As(err, &e) {
		if e.Class == class {
			return true
		}
		err = e.Err
		e = nil
	}
	return false
}

// ClassOf returns the class of the outermost classed error in the chain,
// or "" if the chain carries none.
func ClassOf(err error) Class {
	var e *E
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}
