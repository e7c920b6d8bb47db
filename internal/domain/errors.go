package domain

import "fmt"

// GatewayError describes a failed call against the inference backend. It is
// retained for diagnostic logging only; gateway failures never propagate as
// errors past the gateway boundary.
type GatewayError struct {
	Op         string // "probe_health" or "submit_analysis"
	StatusCode int    // HTTP status when available, 0 on transport failure
	Err        error  // underlying transport error, nil on HTTP-level failure
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
}

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a GatewayError for the given operation.
func NewGatewayError(op string, statusCode int, err error) *GatewayError {
	return &GatewayError{Op: op, StatusCode: statusCode, Err: err}
}
