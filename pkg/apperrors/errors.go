// Package apperrors defines the error taxonomy shared across the engine.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyQuestion    = errors.New("empty question")
	ErrUnsupportedQuery = errors.New("unsupported query type")
	ErrNoProfiles       = errors.New("no table profiles loaded")
)

// Kind classifies a query-pipeline failure.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindUnsupportedQuery Kind = "unsupported_query"
	KindRoutingAmbiguous Kind = "routing_ambiguous"
	KindRoutingFailed    Kind = "routing_failed"
	KindPlanInvalid      Kind = "plan_invalid"
	KindSQLFailed        Kind = "sql_execution_failed"
	KindTimeout          Kind = "timeout"
	KindDataEmpty        Kind = "data_empty"
)

// QueryError is a pipeline failure carrying both a machine kind and a
// human-readable explanation. Only routing_ambiguous, data_empty and
// terminal sql_execution_failed surface to the user; everything else is
// recovered inside the pipeline.
type QueryError struct {
	Kind    Kind
	Message string // shown to the user
	Cause   error
}

func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// NewQueryError builds a QueryError.
func NewQueryError(kind Kind, message string, cause error) *QueryError {
	return &QueryError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from an error chain, or empty when it carries none.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}
