// Package aerrors wraps github.com/cockroachdb/errors for the broker and
// client runtimes (the leaf proto/value packages use plain stdlib errors,
// matching the teacher's encoding/errors.go). It adds the taxonomy
// spec.md §7 describes: Protocol, Semantic, Transport, and Lifecycle
// errors, each identifiable with errors.Is across wrap boundaries.
package aerrors

import (
	"github.com/cockroachdb/errors"
)

// Class tags an error with which of spec.md §7's four taxonomies it
// belongs to.
type Class int

const (
	ClassProtocol Class = iota
	ClassSemantic
	ClassTransport
	ClassLifecycle
)

func (c Class) String() string {
	switch c {
	case ClassProtocol:
		return "protocol"
	case ClassSemantic:
		return "semantic"
	case ClassTransport:
		return "transport"
	case ClassLifecycle:
		return "lifecycle"
	default:
		return "unknown"
	}
}

type classMark struct{ class Class }

func (classMark) Error() string { return "" }

// Wrap annotates err with a class and a hint message, preserving errors.Is
// compatibility with the original error.
func Wrap(err error, class Class, hint string) error {
	if err == nil {
		return nil
	}
	wrapped := errors.WithHint(err, hint)
	return errors.Mark(wrapped, classMark{class})
}

// Is reports whether err (or anything it wraps) was marked with class.
func Is(err error, class Class) bool {
	return errors.Is(err, classMark{class})
}

// New constructs a new class-tagged error, the way the teacher constructs
// package-level sentinels with errors.New, but routed through
// cockroachdb/errors so callers can attach hints and hop stack frames.
func New(class Class, msg string) error {
	return errors.Mark(errors.Newf("%s", msg), classMark{class})
}

// ErrShutdown is returned by broker/client operations once Run's dispatch
// loop has begun an orderly shutdown; compare with errors.Is.
var ErrShutdown = New(ClassLifecycle, "aldrin: shutting down")
