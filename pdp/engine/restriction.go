package engine

import (
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

const (
	ReasonNoConsent           = "no consent for category"
	ReasonCriticalSensitivity = "critical sensitivity requires special authorization"
)

// EvaluateRestrictions splits the requested categories into releasable and
// restricted sets. It is pure: the same inputs always give the same result,
// which the decision cache relies on.
//
// Withholding an elevated category is flagged for audit, as is releasing a
// category that requires explicit consent.
// Explicit-consent categories are not held for a separate verification step.
func EvaluateRestrictions(categories []string, consent *pdp_model.ConsentOutcome) pdp_model.RestrictionResult {
	result := pdp_model.RestrictionResult{
		Allowed:    []string{},
		Restricted: []string{},
		RiskLevel:  pdp_model.RiskLow,
	}
	if consent != nil {
		result.AuditRequired = consent.AuditRequired
		if consent.RiskLevel.Valid() {
			result.RiskLevel = consent.RiskLevel
		}
	}

	for _, category := range categories {
		var (
			entry pdp_model.CategoryConsent
			found bool
		)
		if consent != nil {
			entry, found = consent.Lookup(category)
		}

		switch {
		case found && entry.Sensitivity == pdp_model.SensitivityCritical:
			result.Restrict(category, ReasonCriticalSensitivity)
			result.AuditRequired = true
			result.RiskLevel = result.RiskLevel.Max(pdp_model.RiskHigh)
		case !found || !entry.Consented:
			result.Restrict(category, ReasonNoConsent)
			if found && entry.Sensitivity == pdp_model.SensitivityElevated {
				result.AuditRequired = true
			}
		default:
			result.Allowed = append(result.Allowed, category)
			if entry.RequiresExplicitConsent {
				result.AuditRequired = true
			}
			if entry.Sensitivity == pdp_model.SensitivityElevated {
				result.RiskLevel = result.RiskLevel.Max(pdp_model.RiskMedium)
			}
		}
	}
	return result
}
