// Package errors provides the engine's structured diagnostic error
// type. Public entry points in internal/database, internal/loader and
// internal/datamodel return a bare types.Result, per spec §7 ("errors
// are returned, not thrown"); EngineError exists underneath that
// boundary to carry the causal chain and contextual fields a
// structured logger wants, the way the teacher's AppError did for its
// own dispatcher pipeline.
package errors

import (
	"fmt"
	"time"

	"github.com/rocprofvis/datamodel/pkg/types"
)

// EngineError is a standardized internal error: a Result code plus
// the component/operation that produced it and, optionally, the
// underlying driver or allocation error that caused it.
type EngineError struct {
	Result    types.Result
	Component string
	Operation string
	Message   string
	Cause     error
	Timestamp time.Time
}

// New creates an EngineError with no cause.
func New(result types.Result, component, operation, message string) *EngineError {
	return &EngineError{
		Result:    result,
		Component: component,
		Operation: operation,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap creates an EngineError with an underlying cause, typically a
// *sql.DB / driver error translated to DbAccessFailed per spec §7.
func Wrap(result types.Result, component, operation string, cause error) *EngineError {
	return &EngineError{
		Result:    result,
		Component: component,
		Operation: operation,
		Message:   cause.Error(),
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Result, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Result, e.Message)
}

// Unwrap lets errors.Is/As reach the underlying driver error.
func (e *EngineError) Unwrap() error { return e.Cause }

// ToFields renders the error as a structured-logging field map, the
// same shape the teacher's AppError.ToMap produced for logrus.
func (e *EngineError) ToFields() map[string]interface{} {
	fields := map[string]interface{}{
		"result":    e.Result.String(),
		"component": e.Component,
		"operation": e.Operation,
		"timestamp": e.Timestamp,
	}
	if e.Cause != nil {
		fields["cause"] = e.Cause.Error()
	}
	if e.Message != "" {
		fields["message"] = e.Message
	}
	return fields
}

// As reports whether err is (or wraps) an *EngineError and, if so,
// returns it.
func As(err error) (*EngineError, bool) {
	ee, ok := err.(*EngineError)
	if ok {
		return ee, true
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return As(u.Unwrap())
	}
	return nil, false
}
