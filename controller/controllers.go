// api/controller/controllers.go
package controller

import "github.com/dev-mohitbeniwal/consentgate/api/service"

type Controllers struct {
	Access *AccessController
	Audit  *AuditController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Access: NewAccessController(services.Access),
		Audit:  NewAuditController(services.AuditLog),
	}
}
