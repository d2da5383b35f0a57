// api/service/audit_log_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	"github.com/dev-mohitbeniwal/consentgate/api/util"
)

const defaultAuditQueryLimit = 100

// IAuditLogService defines the interface for reading the access audit trail
type IAuditLogService interface {
	QueryLogs(ctx context.Context, q audit.Query) ([]audit.AuditRecord, error)
}

type AuditLogService struct {
	auditService   audit.Service
	validationUtil *util.ValidationUtil
}

var _ IAuditLogService = &AuditLogService{}

func NewAuditLogService(auditService audit.Service, validationUtil *util.ValidationUtil) *AuditLogService {
	return &AuditLogService{auditService: auditService, validationUtil: validationUtil}
}

func (s *AuditLogService) QueryLogs(ctx context.Context, q audit.Query) ([]audit.AuditRecord, error) {
	if err := s.validationUtil.ValidateAuditQuery(q); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		q.Limit = defaultAuditQueryLimit
	}

	start := time.Now()
	records, err := s.auditService.QueryLogs(ctx, q)
	if err != nil {
		logger.Error("Failed to query audit logs", zap.Error(err))
		return nil, err
	}
	logger.Info("Queried audit logs",
		zap.Int("count", len(records)),
		zap.Duration("duration", time.Since(start)))
	return records, nil
}
