package auth

import "fmt"

// RestrictionError reports a malformed restriction rule. It is a
// configuration-time failure: the offending role loses the grant but the
// process keeps running.
type RestrictionError struct {
	Restriction string
	Reason      string
}

func (e *RestrictionError) Error() string {
	return fmt.Sprintf("invalid restriction %q: %s", e.Restriction, e.Reason)
}

// PermissionError reports a request-time denial. Requests failing with a
// PermissionError never reach the backend cluster.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Reason
}

// Denied builds a PermissionError with a formatted reason.
func Denied(format string, args ...any) *PermissionError {
	return &PermissionError{Reason: fmt.Sprintf(format, args...)}
}

// RoleDirectoryError reports a failed role fetch from the backend
// cluster. The affected client loses all grants for the cycle instead of
// keeping stale ones.
type RoleDirectoryError struct {
	Err error
}

func (e *RoleDirectoryError) Error() string {
	return fmt.Sprintf("role directory: %v", e.Err)
}

func (e *RoleDirectoryError) Unwrap() error {
	return e.Err
}
