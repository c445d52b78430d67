package graphdb

import (
	"errors"
	"fmt"
)

var (
	ErrNoEmbedder   = errors.New("graphdb: no embedder configured")
	ErrNestedAtomic = errors.New("graphdb: atomic unit already in progress on this context")

	ErrDimensionMismatch = errors.New("graphdb: embedding dimensions differ from existing tables")
)

// ConnectionError reports that the backend could not be reached. It is never retried.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("graphdb: connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransactionError reports a failure inside a unit of work. The unit has been
// rolled back by the time the caller sees it.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("graphdb: transaction rolled back: %v", e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// QueryError reports a malformed clause or query shape, detected before execution.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return "graphdb: invalid query: " + e.Reason
}

func queryErrorf(format string, args ...any) *QueryError {
	return &QueryError{Reason: fmt.Sprintf(format, args...)}
}

type EmbeddingProviderError struct {
	Err error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("graphdb: embedding provider: %v", e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }
