package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

// emitAudit hands the record to the sink in the background. The write is
// detached from the caller's cancellation but bounded by the audit timeout.
// Once Shutdown has started, records are written inline instead so the
// wait group is never grown while Shutdown waits on it.
func (e *AccessDecisionEngine) emitAudit(ctx context.Context, req *pdp_model.AccessRequest, result evaluation) {
	record := e.buildAuditRecord(ctx, req, result)

	e.auditMu.Lock()
	if e.closing {
		e.auditMu.Unlock()
		e.writeAudit(ctx, record)
		return
	}
	e.audits.Add(1)
	e.auditMu.Unlock()

	go func() {
		defer e.audits.Done()
		e.writeAudit(ctx, record)
	}()
}

func (e *AccessDecisionEngine) writeAudit(ctx context.Context, record audit.AuditRecord) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic in audit sink", zap.Any("panic", r), zap.String("auditID", record.ID))
		}
	}()

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.auditTimeout)
	defer cancel()
	if err := e.sink.Write(wctx, record); err != nil {
		logger.Error("Failed to write audit record",
			zap.Error(err),
			zap.String("auditID", record.ID),
			zap.String("outcome", record.Outcome))
	}
}

func (e *AccessDecisionEngine) buildAuditRecord(ctx context.Context, req *pdp_model.AccessRequest, result evaluation) audit.AuditRecord {
	md := pdp_model.RequestMetadataFrom(ctx)
	d := result.decision

	record := audit.AuditRecord{
		ID:              e.newID(),
		Timestamp:       time.Now().UTC(),
		Allowed:         d.Allowed,
		ConsentVerified: d.ConsentVerified,
		RiskLevel:       string(d.RiskLevel),
		Outcome:         result.outcome,
		Reason:          result.reason,
		Error:           d.Error,
		RequestID:       md.RequestID,
		ClientIP:        md.ClientIP,
		UserAgent:       md.UserAgent,
		SessionID:       md.SessionID,
	}
	if req != nil {
		record.RequesterID = req.RequesterID
		record.RequesterRole = req.RequesterRole
		record.SubjectID = req.SubjectID
		record.Categories = req.UniqueCategories()
		record.Purpose = req.Purpose
		record.FacilityID = req.FacilityID
		record.ProviderID = req.ProviderID
		record.ServiceType = req.ServiceType
		record.EmergencyOverride = req.EmergencyOverride
		record.AccessType = string(req.AccessType)
		record.Justification = req.Justification
	}
	return record
}
