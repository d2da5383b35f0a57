// api/model/neo4j/nodes.go
package pdp_neo4j

// Node Labels
const (
	// LabelUser represents a requester known to the user directory
	LabelUser = "User"

	// LabelRole represents a role that can be assigned to users
	LabelRole = "Role"

	// LabelPermission represents a specific permission in the system
	LabelPermission = "Permission"

	// LabelFacility represents a care site a user can be a member of
	LabelFacility = "Facility"

	// LabelPatient represents the subject whose data is requested
	LabelPatient = "Patient"

	// LabelDataCategory represents a category of patient data and its sensitivity
	LabelDataCategory = "DataCategory"
)
