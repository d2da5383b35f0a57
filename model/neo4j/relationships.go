// api/model/neo4j/relationships.go
package pdp_neo4j

// Relationship Types
const (
	// RelHasRole represents the relationship between a user and their assigned roles
	RelHasRole = "HAS_ROLE"

	// RelGrants represents the relationship between a role and its permissions
	RelGrants = "GRANTS"

	// RelHasPermission represents a permission granted directly to a user
	RelHasPermission = "HAS_PERMISSION"

	// RelMemberOf represents the relationship between a user and a facility
	RelMemberOf = "MEMBER_OF"

	// RelConsents represents a patient's consent to release a data category.
	// Its properties scope the consent (see the Consent* attributes).
	RelConsents = "CONSENTS"
)

// ConsentStatusActive is the only status under which a consent counts.
const ConsentStatusActive = "active"
