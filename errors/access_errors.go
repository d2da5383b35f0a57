// api/errors/access_errors.go
package errors

import "errors"

var (
	ErrInvalidAccessRequest = errors.New("invalid access request")
	ErrEmptyCategories      = errors.New("no data categories requested")
	ErrInvalidAccessType    = errors.New("invalid access type")
	ErrBatchTooLarge        = errors.New("batch exceeds maximum size")

	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user account is inactive")

	ErrMalformedConsent        = errors.New("malformed consent outcome")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrCacheUnavailable        = errors.New("decision cache unavailable")
)
