package model

import "fmt"

type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

var riskRank = map[RiskTier]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

func (r RiskTier) Valid() bool {
	_, ok := riskRank[r]
	return ok
}

// Max returns the higher of the two tiers. Unknown tiers rank as critical.
func (r RiskTier) Max(other RiskTier) RiskTier {
	if r.rank() >= other.rank() {
		return r
	}
	return other
}

func (r RiskTier) rank() int {
	if n, ok := riskRank[r]; ok {
		return n
	}
	return riskRank[RiskCritical]
}

func ParseRiskTier(s string) (RiskTier, error) {
	r := RiskTier(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown risk tier %q", s)
	}
	return r, nil
}

// AccessDecision is returned to callers and memoized in the decision cache.
// Accessible and Restricted partition the requested categories; Allowed is
// true exactly when Accessible is non-empty.
type AccessDecision struct {
	Allowed            bool     `json:"allowed"`
	ConsentVerified    bool     `json:"consent_verified"`
	Accessible         []string `json:"accessible"`
	Restricted         []string `json:"restricted"`
	RiskLevel          RiskTier `json:"risk_level"`
	AuditRequired      bool     `json:"audit_required"`
	RestrictionReasons []string `json:"restriction_reasons,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// IsSystemicFault distinguishes a fail-closed fault decision from a policy denial.
func (d *AccessDecision) IsSystemicFault() bool {
	return d != nil && d.Error != ""
}

// Clone returns a deep copy so cached decisions cannot be mutated by callers.
func (d *AccessDecision) Clone() *AccessDecision {
	if d == nil {
		return nil
	}
	c := *d
	c.Accessible = append([]string{}, d.Accessible...)
	c.Restricted = append([]string{}, d.Restricted...)
	if d.RestrictionReasons != nil {
		c.RestrictionReasons = append([]string{}, d.RestrictionReasons...)
	}
	return &c
}
