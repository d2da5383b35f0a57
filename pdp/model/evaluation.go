package model

import (
	"fmt"

	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
)

type Sensitivity string

const (
	SensitivityNormal   Sensitivity = "normal"
	SensitivityElevated Sensitivity = "elevated"
	SensitivityCritical Sensitivity = "critical"
)

func (s Sensitivity) Valid() bool {
	switch s {
	case SensitivityNormal, SensitivityElevated, SensitivityCritical:
		return true
	}
	return false
}

// UserRecord is what the user directory knows about a requester.
type UserRecord struct {
	ID          string   `json:"id"`
	Active      bool     `json:"active"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Facilities  []string `json:"facilities"`
}

func (u *UserRecord) HasRole(role string) bool {
	return contains(u.Roles, role)
}

func (u *UserRecord) HasPermission(perm string) bool {
	return contains(u.Permissions, perm)
}

func (u *UserRecord) InFacility(facilityID string) bool {
	return contains(u.Facilities, facilityID)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type AuthorizationOutcome struct {
	Authorized bool
	Reason     string
}

// ConsentQuery is the input handed to the consent verifier.
type ConsentQuery struct {
	SubjectID         string
	RequesterID       string
	RequesterRole     string
	Categories        []string
	Purpose           string
	FacilityID        string
	ProviderID        string
	ServiceType       string
	EmergencyOverride bool
}

func NewConsentQuery(req *AccessRequest) ConsentQuery {
	return ConsentQuery{
		SubjectID:         req.SubjectID,
		RequesterID:       req.RequesterID,
		RequesterRole:     req.RequesterRole,
		Categories:        req.UniqueCategories(),
		Purpose:           req.Purpose,
		FacilityID:        req.FacilityID,
		ProviderID:        req.ProviderID,
		ServiceType:       req.ServiceType,
		EmergencyOverride: req.EmergencyOverride,
	}
}

type CategoryConsent struct {
	Category                string      `json:"category"`
	Consented               bool        `json:"consented"`
	Sensitivity             Sensitivity `json:"sensitivity"`
	RequiresExplicitConsent bool        `json:"requires_explicit_consent"`
}

// ConsentOutcome is the consent verifier's answer for one request.
type ConsentOutcome struct {
	Valid         bool              `json:"valid"`
	Categories    []CategoryConsent `json:"categories"`
	AuditRequired bool              `json:"audit_required"`
	RiskLevel     RiskTier          `json:"risk_level"`
	Justification string            `json:"justification,omitempty"`
}

// Validate rejects outcomes the engine cannot reason about safely.
func (c *ConsentOutcome) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: outcome is nil", pdp_errors.ErrMalformedConsent)
	}
	if !c.RiskLevel.Valid() {
		return fmt.Errorf("%w: risk level %q", pdp_errors.ErrMalformedConsent, c.RiskLevel)
	}
	for _, cc := range c.Categories {
		if cc.Category == "" {
			return fmt.Errorf("%w: consent entry without category", pdp_errors.ErrMalformedConsent)
		}
		if !cc.Sensitivity.Valid() {
			return fmt.Errorf("%w: category %q has sensitivity %q", pdp_errors.ErrMalformedConsent, cc.Category, cc.Sensitivity)
		}
	}
	return nil
}

// Lookup returns the consent entry for a category, if the verifier sent one.
func (c *ConsentOutcome) Lookup(category string) (CategoryConsent, bool) {
	for _, cc := range c.Categories {
		if cc.Category == category {
			return cc, true
		}
	}
	return CategoryConsent{}, false
}

type RestrictionResult struct {
	Allowed       []string
	Restricted    []string
	AuditRequired bool
	Reasons       []string
	RiskLevel     RiskTier
}

// Restrict records a withheld category together with its reason.
func (r *RestrictionResult) Restrict(category, reason string) {
	r.Restricted = append(r.Restricted, category)
	r.Reasons = append(r.Reasons, fmt.Sprintf("%s: %s", category, reason))
}
