// api/errors/audit_errors.go
package errors

import "errors"

var (
	ErrAuditWrite            = errors.New("audit write failed")
	ErrAuditChainBroken      = errors.New("audit hash chain broken")
	ErrInvalidSearchCriteria = errors.New("invalid search criteria")
)
