// api/pdp/policy/tables.go
package policy

import (
	"fmt"
	"sort"

	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

// Permission names used by the default tables.
const (
	PermPatientDataAccess = "patient_data_access"
	PermPatientDataModify = "patient_data_modify"
	PermPatientDataExport = "patient_data_export"
	PermPatientDataShare  = "patient_data_share"
	PermGeneticDataAccess = "genetic_data_access"
	PermEmergencyAccess   = "emergency_access"
)

// Tables maps (category, access type) to the roles that may request it and
// the permissions that must all be held. Category and access-type entries
// only ever add to the base sets.
type Tables struct {
	BaseRoles           []string                         `yaml:"base_roles"`
	CategoryRoles       map[string][]string              `yaml:"category_roles"`
	AccessRoles         map[pdp_model.AccessType][]string `yaml:"access_roles"`
	BasePermissions     []string                         `yaml:"base_permissions"`
	CategoryPermissions map[string][]string              `yaml:"category_permissions"`
	AccessPermissions   map[pdp_model.AccessType][]string `yaml:"access_permissions"`
}

// DefaultTables returns the built-in role and permission tables.
func DefaultTables() *Tables {
	return &Tables{
		BaseRoles: []string{"physician", "nurse", "clinician", "care_provider", "admin"},
		CategoryRoles: map[string][]string{
			pdp_model.CategoryMentalHealth: {"psychiatrist", "psychologist", "therapist"},
			pdp_model.CategorySubstanceUse: {"addiction_specialist", "substance_use_counselor"},
			pdp_model.CategoryGeneticInfo:  {"genetic_counselor", "geneticist"},
		},
		AccessRoles: map[pdp_model.AccessType][]string{
			pdp_model.AccessExport: {"data_analyst", "care_coordinator"},
			pdp_model.AccessShare:  {"care_coordinator", "case_manager"},
		},
		BasePermissions: []string{PermPatientDataAccess},
		CategoryPermissions: map[string][]string{
			pdp_model.CategoryGeneticInfo: {PermGeneticDataAccess},
		},
		AccessPermissions: map[pdp_model.AccessType][]string{
			pdp_model.AccessEdit:   {PermPatientDataModify},
			pdp_model.AccessExport: {PermPatientDataExport},
			pdp_model.AccessShare:  {PermPatientDataShare},
		},
	}
}

func (t *Tables) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: tables are nil", pdp_errors.ErrInvalidPolicyTables)
	}
	if len(t.BaseRoles) == 0 {
		return fmt.Errorf("%w: base_roles must not be empty", pdp_errors.ErrInvalidPolicyTables)
	}
	if len(t.BasePermissions) == 0 {
		return fmt.Errorf("%w: base_permissions must not be empty", pdp_errors.ErrInvalidPolicyTables)
	}
	for at := range t.AccessRoles {
		if !at.Valid() {
			return fmt.Errorf("%w: unknown access type %q in access_roles", pdp_errors.ErrInvalidPolicyTables, at)
		}
	}
	for at := range t.AccessPermissions {
		if !at.Valid() {
			return fmt.Errorf("%w: unknown access type %q in access_permissions", pdp_errors.ErrInvalidPolicyTables, at)
		}
	}
	return nil
}

// RequiredRoles returns the sorted set of roles eligible for the request.
// Holding any one of them satisfies the role check.
func (t *Tables) RequiredRoles(categories []string, accessType pdp_model.AccessType) []string {
	set := make(map[string]struct{})
	add(set, t.BaseRoles)
	for _, c := range categories {
		add(set, t.CategoryRoles[c])
	}
	add(set, t.AccessRoles[accessType])
	return sorted(set)
}

// RequiredPermissions returns the sorted set of permissions that must all be held.
func (t *Tables) RequiredPermissions(categories []string, accessType pdp_model.AccessType) []string {
	set := make(map[string]struct{})
	add(set, t.BasePermissions)
	for _, c := range categories {
		add(set, t.CategoryPermissions[c])
	}
	add(set, t.AccessPermissions[accessType])
	return sorted(set)
}

func add(set map[string]struct{}, values []string) {
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
