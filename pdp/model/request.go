package model

import (
	"context"
	"fmt"
	"strings"

	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
)

type AccessType string

const (
	AccessView   AccessType = "view"
	AccessEdit   AccessType = "edit"
	AccessExport AccessType = "export"
	AccessShare  AccessType = "share"
)

func (t AccessType) Valid() bool {
	switch t {
	case AccessView, AccessEdit, AccessExport, AccessShare:
		return true
	}
	return false
}

// Well-known data categories. Any other non-empty category name is accepted;
// its sensitivity is whatever the consent verifier reports.
const (
	CategoryDemographics  = "demographics"
	CategoryMentalHealth  = "mental_health"
	CategorySubstanceUse  = "substance_use"
	CategoryGeneticInfo   = "genetic_info"
	CategoryLabResults    = "lab_results"
	CategoryMedications   = "medications"
	CategoryDiagnoses     = "diagnoses"
	CategoryReproductive  = "reproductive_health"
	CategoryPsychotherapy = "psychotherapy_notes"
)

// AccessRequest is a request to view, edit, export or share categorized
// patient data. It is treated as immutable once submitted.
type AccessRequest struct {
	RequesterID       string     `json:"requester_id"`
	RequesterRole     string     `json:"requester_role"`
	SubjectID         string     `json:"subject_id"`
	Categories        []string   `json:"categories"`
	Purpose           string     `json:"purpose"`
	FacilityID        string     `json:"facility_id,omitempty"`
	ProviderID        string     `json:"provider_id,omitempty"`
	ServiceType       string     `json:"service_type,omitempty"`
	EmergencyOverride bool       `json:"emergency_override"`
	AccessType        AccessType `json:"access_type"`
	Justification     string     `json:"justification,omitempty"`
}

// Validate checks the structural requirements of a request.
func (r *AccessRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", pdp_errors.ErrInvalidAccessRequest)
	}
	if strings.TrimSpace(r.RequesterID) == "" {
		return fmt.Errorf("%w: requester id is required", pdp_errors.ErrInvalidAccessRequest)
	}
	if strings.TrimSpace(r.SubjectID) == "" {
		return fmt.Errorf("%w: subject id is required", pdp_errors.ErrInvalidAccessRequest)
	}
	if !r.AccessType.Valid() {
		return fmt.Errorf("%w: %q", pdp_errors.ErrInvalidAccessType, r.AccessType)
	}
	if len(r.UniqueCategories()) == 0 {
		return pdp_errors.ErrEmptyCategories
	}
	return nil
}

// UniqueCategories returns the requested categories in first-seen order with
// duplicates and blank names removed.
func (r *AccessRequest) UniqueCategories() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(r.Categories))
	out := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// RequestMetadata carries caller context recorded on audit records.
type RequestMetadata struct {
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type metadataKey struct{}

func WithRequestMetadata(ctx context.Context, md RequestMetadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, md)
}

func RequestMetadataFrom(ctx context.Context) RequestMetadata {
	if ctx == nil {
		return RequestMetadata{}
	}
	md, _ := ctx.Value(metadataKey{}).(RequestMetadata)
	return md
}
