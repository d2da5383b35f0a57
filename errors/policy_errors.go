// api/errors/policy_errors.go
package errors

import "errors"

var (
	ErrInvalidPolicyTables = errors.New("invalid policy tables")
	ErrDatabaseOperation   = errors.New("database operation failed")
	ErrInternalServer      = errors.New("internal server error")
	ErrUnauthorized        = errors.New("unauthorized")
)
