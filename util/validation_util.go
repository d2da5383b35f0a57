// api/util/validation_util.go

package util

import (
	"fmt"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

const MaxAuditQueryLimit = 1000

type ValidationUtil struct {
	maxBatchSize int
}

func NewValidationUtil(maxBatchSize int) *ValidationUtil {
	return &ValidationUtil{maxBatchSize: maxBatchSize}
}

// ValidateBatch checks only the batch envelope; each request is validated by
// the engine so malformed entries still produce an audited decision.
func (v *ValidationUtil) ValidateBatch(requests []pdp_model.AccessRequest) error {
	if len(requests) == 0 {
		return fmt.Errorf("%w: batch is empty", pdp_errors.ErrInvalidAccessRequest)
	}
	if v.maxBatchSize > 0 && len(requests) > v.maxBatchSize {
		return fmt.Errorf("%w: %d requests, limit is %d", pdp_errors.ErrBatchTooLarge, len(requests), v.maxBatchSize)
	}
	return nil
}

func (v *ValidationUtil) ValidateAuditQuery(q audit.Query) error {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return fmt.Errorf("%w: 'to' precedes 'from'", pdp_errors.ErrInvalidSearchCriteria)
	}
	if q.Limit < 0 || q.Limit > MaxAuditQueryLimit {
		return fmt.Errorf("%w: limit must be between 0 and %d", pdp_errors.ErrInvalidSearchCriteria, MaxAuditQueryLimit)
	}
	return nil
}
