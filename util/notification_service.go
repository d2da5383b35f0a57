// api/util/notification_service.go

package util

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
)

// Mailer delivers a notification message.
type Mailer interface {
	SendEmail(ctx context.Context, recipient, subject, body string) error
}

// NotificationService tells compliance officers about emergency access,
// critical-risk decisions, and audit records that could not be stored.
type NotificationService struct {
	mailer     Mailer
	recipients []string
}

func NewNotificationService(mailer Mailer, recipients []string) *NotificationService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &NotificationService{mailer: mailer, recipients: recipients}
}

// RegisterHandlers subscribes the service to decision events.
func (n *NotificationService) RegisterHandlers(bus *EventBus) {
	bus.Subscribe(EventEmergencyAccess, func(ctx context.Context, e Event) error {
		return n.NotifyEmergencyAccess(ctx, e.Payload)
	})
	bus.Subscribe(EventCriticalDecision, func(ctx context.Context, e Event) error {
		return n.NotifyCriticalDecision(ctx, e.Payload)
	})
}

func (n *NotificationService) NotifyEmergencyAccess(ctx context.Context, e DecisionEvent) error {
	logger.Info("NOTIFICATION: Emergency override used",
		zap.String("requesterID", e.Request.RequesterID),
		zap.String("subjectID", e.Request.SubjectID),
		zap.Bool("allowed", e.Decision.Allowed),
		zap.String("requestID", e.Metadata.RequestID))

	body := "Requester " + e.Request.RequesterID + " used emergency override on subject " + e.Request.SubjectID +
		". Justification: " + e.Request.Justification
	return n.broadcast(ctx, "Emergency access override", body)
}

func (n *NotificationService) NotifyCriticalDecision(ctx context.Context, e DecisionEvent) error {
	logger.Info("NOTIFICATION: Critical risk decision",
		zap.String("requesterID", e.Request.RequesterID),
		zap.String("subjectID", e.Request.SubjectID),
		zap.String("error", e.Decision.Error),
		zap.String("requestID", e.Metadata.RequestID))

	body := "Access request by " + e.Request.RequesterID + " on subject " + e.Request.SubjectID +
		" resolved at critical risk."
	if e.Decision.Error != "" {
		body += " Fault: " + e.Decision.Error
	}
	return n.broadcast(ctx, "Critical risk access decision", body)
}

// NotifyAuditFailure implements audit.Alerter.
func (n *NotificationService) NotifyAuditFailure(ctx context.Context, record audit.AuditRecord, err error) error {
	logger.Error("NOTIFICATION: Audit record lost",
		zap.Error(err),
		zap.String("auditID", record.ID),
		zap.String("requesterID", record.RequesterID),
		zap.String("outcome", record.Outcome))

	body := "Audit record " + record.ID + " for requester " + record.RequesterID +
		" could not be persisted: " + err.Error()
	return n.broadcast(ctx, "Audit write failure", body)
}

func (n *NotificationService) broadcast(ctx context.Context, subject, body string) error {
	var errs []error
	for _, r := range n.recipients {
		if err := n.mailer.SendEmail(ctx, r, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogMailer only logs messages; it stands in until a mail relay is configured.
type LogMailer struct{}

func (LogMailer) SendEmail(ctx context.Context, recipient, subject, body string) error {
	logger.Info("Sending email",
		zap.String("recipient", recipient),
		zap.String("subject", subject))
	return nil
}
