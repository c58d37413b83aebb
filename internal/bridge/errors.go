package bridge

import "errors"

var (
	// ErrNotStarted is returned when a registration requires an active
	// session and Start has not succeeded (or Stop has run since).
	ErrNotStarted = errors.New("service not started")

	// ErrUnknownQuery is returned when a query id does not resolve to a
	// retained document.
	ErrUnknownQuery = errors.New("unknown query id")

	// ErrInvalidVariables is returned when a variables payload parses to
	// something other than a JSON map.
	ErrInvalidVariables = errors.New("variables must be a JSON map")
)

// ParseError carries the query-engine diagnostic for malformed query text.
type ParseError struct {
	Err error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return "parse error: " + e.Err.Error()
}

// Unwrap returns the underlying parser diagnostic
func (e *ParseError) Unwrap() error {
	return e.Err
}
