// api/service/services.go
package service

import (
	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	"github.com/dev-mohitbeniwal/consentgate/api/util"
)

type Services struct {
	Access   IAccessService
	AuditLog IAuditLogService
}

func InitializeServices(
	engine DecisionEngine,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *Services {
	notificationSvc.RegisterHandlers(eventBus)

	return &Services{
		Access:   NewAccessService(engine, validationUtil, eventBus),
		AuditLog: NewAuditLogService(auditService, validationUtil),
	}
}
