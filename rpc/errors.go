package rpc

import "fmt"

// NetworkError is a transport-level failure: the request never produced
// a response (connection refused, timeout, DNS).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("rpc: network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means the session token was missing, invalid, or expired.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("rpc: auth error: %s", e.Message)
}

// ServerError is a response the backend did deliver but flagged as failed,
// either via HTTP status or a success=false envelope.
type ServerError struct {
	Procedure  string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rpc: %s failed (HTTP %d): %s", e.Procedure, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("rpc: %s failed: %s", e.Procedure, e.Message)
}
