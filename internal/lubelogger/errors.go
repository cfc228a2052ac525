package lubelogger

import "fmt"

// ConfigError indicates malformed client configuration. It is always
// detected before any network call is made.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// AuthError indicates the server rejected the credentials (HTTP 401).
// It is never retried automatically; the caller is expected to surface a
// "needs reauthentication" condition.
type AuthError struct {
	Op string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed", e.Op)
}

// ConnectivityError wraps a transport-level failure (dial, TLS, timeout).
// These are transient and eligible for the next scheduled poll.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: connection error: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ServerError indicates an unexpected non-2xx response.
type ServerError struct {
	Op         string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server returned status %d", e.Op, e.StatusCode)
}

// ValidationError indicates a write payload was rejected, either by
// client-side validation or by the server (non-401 4xx).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid record: " + e.Reason
}

// NotFoundError indicates a write referenced a vehicle id that is not in
// the coordinator's directory.
type NotFoundError struct {
	VehicleID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown vehicle id %d", e.VehicleID)
}
