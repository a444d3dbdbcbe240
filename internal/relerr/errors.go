// Package relerr defines the error taxonomy of the translation pipeline.
//
// All three kinds are unrecoverable at the point raised: a mistranslated or
// partially translated query is worse than a failed one, so there is no
// fallback translation path, no silent degradation and no retry. Errors
// carry the offending operator, member or node name so failures can be
// diagnosed without inspecting pipeline internals.
package relerr

import (
	"errors"
	"fmt"
)

// TranslationError reports that an operator, member or method in the input
// expression tree has no relational equivalent. Fatal to that translation
// attempt.
type TranslationError struct {
	// Op is the unsupported query operator or method name, when the
	// failure is operator-shaped.
	Op string

	// Member is the unresolvable member name, when the failure is a member
	// access.
	Member string

	// Detail describes the failure.
	Detail string
}

func (e *TranslationError) Error() string {
	switch {
	case e.Op != "":
		return fmt.Sprintf("translation: unsupported operation %q: %s", e.Op, e.Detail)
	case e.Member != "":
		return fmt.Sprintf("translation: cannot resolve member %q: %s", e.Member, e.Detail)
	default:
		return fmt.Sprintf("translation: %s", e.Detail)
	}
}

// NewUnsupportedOp builds a TranslationError for an operator outside the
// supported closed set.
func NewUnsupportedOp(op, detail string) *TranslationError {
	return &TranslationError{Op: op, Detail: detail}
}

// NewUnresolvedMember builds a TranslationError for a member access with no
// mapped column or built-in translation.
func NewUnresolvedMember(member, detail string) *TranslationError {
	return &TranslationError{Member: member, Detail: detail}
}

// IsTranslationError reports whether err is (or wraps) a TranslationError.
func IsTranslationError(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}

// FormattingError reports that a finalized tree contains a node kind or
// shape the formatter cannot render. Fatal.
type FormattingError struct {
	// Node is the offending node kind.
	Node string

	// Detail describes the failure.
	Detail string
}

func (e *FormattingError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("formatting: cannot render %s node: %s", e.Node, e.Detail)
	}
	return fmt.Sprintf("formatting: %s", e.Detail)
}

// NewFormatting builds a FormattingError for a node kind.
func NewFormatting(node, detail string) *FormattingError {
	return &FormattingError{Node: node, Detail: detail}
}

// IsFormattingError reports whether err is (or wraps) a FormattingError.
func IsFormattingError(err error) bool {
	var fe *FormattingError
	return errors.As(err, &fe)
}

// ExecutionError reports a storage-collaborator failure during prepare or
// fetch. It surfaces as the immediate failure of the in-flight operation;
// retry policy, if any, belongs to the storage collaborator.
type ExecutionError struct {
	// ExecID identifies the execution the failure belongs to.
	ExecID string

	// Phase is "prepare", "fetch" or "project".
	Phase string

	// Err is the underlying failure.
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution %s failed during %s: %v", e.ExecID, e.Phase, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// NewExecution wraps a storage failure with execution context.
func NewExecution(execID, phase string, err error) *ExecutionError {
	return &ExecutionError{ExecID: execID, Phase: phase, Err: err}
}

// IsExecutionError reports whether err is (or wraps) an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
