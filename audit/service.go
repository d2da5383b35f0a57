// api/audit/service.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
)

// Service is the audit sink consumed by the decision engine.
type Service interface {
	Write(ctx context.Context, record AuditRecord) error
	QueryLogs(ctx context.Context, q Query) ([]AuditRecord, error)
}

// Alerter is told about audit records that could not be persisted after retries.
type Alerter interface {
	NotifyAuditFailure(ctx context.Context, record AuditRecord, err error) error
}

type ServiceOption func(*service)

func WithRetry(attempts int, backoff time.Duration) ServiceOption {
	return func(s *service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

func WithAlerter(a Alerter) ServiceOption {
	return func(s *service) { s.alerter = a }
}

// WithMirror adds a secondary backend that receives every write.
func WithMirror(repo Repository) ServiceOption {
	return func(s *service) { s.repos = append(s.repos, repo) }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) { s.now = now }
}

type service struct {
	repos    []Repository
	attempts int
	backoff  time.Duration
	alerter  Alerter
	now      func() time.Time
}

// NewService queries from repo and writes to repo plus any mirrors.
func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repos:    []Repository{repo},
		attempts: 3,
		backoff:  200 * time.Millisecond,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write stamps the record and persists it to every backend, retrying each one
// independently so a healthy backend is never written twice.
func (s *service) Write(ctx context.Context, record AuditRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now().UTC()
	}

	var errs []error
	for _, repo := range s.repos {
		if err := s.writeWithRetry(ctx, repo, record); err != nil {
			errs = append(errs, err)
			logger.Error("Audit record could not be persisted",
				zap.Error(err),
				zap.String("auditID", record.ID),
				zap.String("requesterID", record.RequesterID),
				zap.String("outcome", record.Outcome))
			if s.alerter != nil {
				if alertErr := s.alerter.NotifyAuditFailure(ctx, record, err); alertErr != nil {
					logger.Error("Failed to raise audit failure alert", zap.Error(alertErr), zap.String("auditID", record.ID))
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", pdp_errors.ErrAuditWrite, errors.Join(errs...))
	}
	return nil
}

func (s *service) writeWithRetry(ctx context.Context, repo Repository, record AuditRecord) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = repo.LogAccess(ctx, record); err == nil {
			return nil
		}
		logger.Warn("Audit write attempt failed",
			zap.Error(err),
			zap.String("auditID", record.ID),
			zap.Int("attempt", attempt))
		if attempt == s.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (s *service) QueryLogs(ctx context.Context, q Query) ([]AuditRecord, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, fmt.Errorf("%w: 'to' precedes 'from'", pdp_errors.ErrInvalidSearchCriteria)
	}
	records, err := s.repos[0].QueryLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pdp_errors.ErrDatabaseOperation, err)
	}
	return records, nil
}
