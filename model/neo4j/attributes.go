// api/model/neo4j/attributes.go
package pdp_neo4j

// Attribute Keys
const (
	// AttrID represents the unique identifier of a node
	AttrID = "id"

	// AttrName represents the name attribute of a node
	AttrName = "name"

	// AttrActive represents whether a user account is active
	AttrActive = "active"

	// AttrEmergencyAccess flags a user allowed to use the emergency override
	AttrEmergencyAccess = "emergencyAccess"

	// AttrSensitivity is the sensitivity tier of a data category
	AttrSensitivity = "sensitivity"
)

// Consent relationship properties
const (
	ConsentStatus    = "status"
	ConsentPurposes  = "purposes"
	ConsentGrantees  = "grantees"
	ConsentExplicit  = "explicit"
	ConsentExpiresAt = "expiresAt"
)
