package errcode

import "errors"

// Code is a stable, log- and bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Shared resources
	LockTimeout      Code = "lock_timeout"
	QueueFull        Code = "queue_full"
	QueueEmpty       Code = "queue_empty"
	ResourceCreation Code = "resource_creation"
	Closed           Code = "closed"

	// Control plane
	InvalidParams  Code = "invalid_params"
	InvalidCommand Code = "invalid_command"
	Unsupported    Code = "unsupported"
	Rejected       Code = "rejected"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the failing operation and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match a wrapped *E by its code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E for op with code c.
func Wrap(c Code, op, msg string) error {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	var x interface{ Code() Code }
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// Fatal reports whether err must end the calling task's loop.
// Flow-control outcomes (full/empty) are handled locally by stages.
func Fatal(err error) bool {
	switch Of(err) {
	case OK, QueueFull, QueueEmpty:
		return false
	}
	return true
}
