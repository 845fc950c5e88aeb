package staircase

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("invalid staircase configuration")

	// ErrInvalidArgument is matched by every *ArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSequencing is matched by every *SequenceError.
	ErrSequencing = errors.New("request/report sequence violated")

	// ErrFinished is returned by Next once the staircase has terminated.
	ErrFinished = errors.New("staircase finished")
)

// ConfigError reports a configuration field that is not strictly positive.
type ConfigError struct {
	Field string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid staircase configuration: %s must be positive, got %v", e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// ArgumentError reports a report whose outcome is neither correct nor incorrect.
type ArgumentError struct {
	Arg   string
	Value any
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %v", e.Arg, e.Value)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

// SequenceError reports a violation of the Next/Report ordering contract.
type SequenceError struct {
	Op     string // "next" or "report"
	Reason string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("staircase %s: %s", e.Op, e.Reason)
}

func (e *SequenceError) Unwrap() error { return ErrSequencing }
