package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks errors in the network definition, detected at build time.
	ErrConfiguration = errors.New("invalid network configuration")
	// ErrInternal marks impossible states inside node implementations.
	ErrInternal = errors.New("internal error")
	// ErrOrderingViolation is raised when a node receives events after it has been flushed.
	ErrOrderingViolation = errors.New("propagation ordering violation")
	// ErrUnknownFact is returned when updating or retracting a fact that was never inserted.
	ErrUnknownFact = errors.New("unknown fact")
	// ErrDuplicateFact is returned when inserting a fact twice.
	ErrDuplicateFact = errors.New("fact already inserted")
	// ErrNotComparable is returned for facts that cannot be used as map keys.
	ErrNotComparable = errors.New("fact is not comparable")
	// ErrCorrupted is returned by every session operation after a failed flush.
	ErrCorrupted = errors.New("network corrupted by a previous failure")
)

// ConfigError describes a configuration error for a given node or constraint.
type ConfigError struct {
	Node    string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Message)
	}
	return fmt.Sprintf("%s: node %s: %s", ErrConfiguration, e.Node, e.Message)
}

// Unwrap makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigError) Unwrap() error { return ErrConfiguration }

func newConfigError(node, format string, args ...any) error {
	return &ConfigError{Node: node, Message: fmt.Sprintf(format, args...)}
}

// InternalError is raised (as a panic) by nodes on impossible states and returned by Flush.
type InternalError struct {
	Node  string
	Cause error
	msg   string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%v: %s", e.Cause, e.msg)
	}
	return fmt.Sprintf("%v: node %s: %s", e.Cause, e.Node, e.msg)
}

// Unwrap returns the error category.
func (e *InternalError) Unwrap() error { return e.Cause }

func impossibleState(node, format string, args ...any) {
	panic(&InternalError{Node: node, Cause: ErrInternal, msg: fmt.Sprintf(format, args...)})
}

// ScoreCorruptionError reports a mismatch between the incrementally maintained score and a
// from-scratch recalculation.
type ScoreCorruptionError struct {
	Working     string
	FromScratch string
}

// Error implements the error interface.
func (e *ScoreCorruptionError) Error() string {
	return fmt.Sprintf("score corruption: working score %s differs from the from-scratch score %s",
		e.Working, e.FromScratch)
}

// recoverError converts a recovered panic value into an error.
func recoverError(r any) error {
	switch v := r.(type) {
	case *InternalError:
		return v
	case error:
		return fmt.Errorf("%w: %w", ErrInternal, v)
	default:
		return fmt.Errorf("%w: %v", ErrInternal, v)
	}
}
