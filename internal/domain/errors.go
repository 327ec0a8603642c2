package domain

import "errors"

var (
	// ErrUpstreamUnavailable matches any failure to reach the remote database.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrQueryFailed matches any error raised while running a gateway query.
	ErrQueryFailed = errors.New("query failed")

	// ErrInvalidOrder matches order payloads rejected before touching the database.
	ErrInvalidOrder = errors.New("invalid order")
)

// ConnectionError carries the driver message verbatim; clients display it as is.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e == nil || e.Err == nil {
		return "connection failure"
	}
	return e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrUpstreamUnavailable }

type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	if e == nil || e.Err == nil {
		return "query failure"
	}
	return e.Err.Error()
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrQueryFailed }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidOrder }
