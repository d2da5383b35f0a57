// api/audit/model.go
package audit

import (
	"time"
)

// AuditRecord is one immutable entry per completed access evaluation,
// denials and faults included. Field order is fixed so the JSON encoding is
// deterministic for hash chaining.
type AuditRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	RequesterID       string   `json:"requester_id"`
	RequesterRole     string   `json:"requester_role"`
	SubjectID         string   `json:"subject_id"`
	Categories        []string `json:"categories"`
	Purpose           string   `json:"purpose"`
	FacilityID        string   `json:"facility_id,omitempty"`
	ProviderID        string   `json:"provider_id,omitempty"`
	ServiceType       string   `json:"service_type,omitempty"`
	EmergencyOverride bool     `json:"emergency_override"`
	AccessType        string   `json:"access_type"`
	Justification     string   `json:"justification,omitempty"`

	Allowed         bool   `json:"allowed"`
	ConsentVerified bool   `json:"consent_verified"`
	RiskLevel       string `json:"risk_level"`
	Outcome         string `json:"outcome"`
	Reason          string `json:"reason,omitempty"`
	Error           string `json:"error,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	PrevHash string `json:"prev_hash,omitempty"`
}

// Outcome values recorded on audit records.
const (
	OutcomeCompleted          = "completed"
	OutcomeDeniedUnauthorized = "denied_unauthorized"
	OutcomeDeniedNoConsent    = "denied_no_consent"
	OutcomeSystemicFault      = "systemic_fault"
)

// Query filters audit records. Zero values mean "no filter".
type Query struct {
	From        time.Time
	To          time.Time
	RequesterID string
	SubjectID   string
	Limit       int
}

func (q Query) Matches(r AuditRecord) bool {
	if !q.From.IsZero() && r.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && r.Timestamp.After(q.To) {
		return false
	}
	if q.RequesterID != "" && r.RequesterID != q.RequesterID {
		return false
	}
	if q.SubjectID != "" && r.SubjectID != q.SubjectID {
		return false
	}
	return true
}
