// test/mock/audit.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
)

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) LogAccess(ctx context.Context, record audit.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) QueryLogs(ctx context.Context, q audit.Query) ([]audit.AuditRecord, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.AuditRecord), args.Error(1)
}

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Write(ctx context.Context, record audit.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditService) QueryLogs(ctx context.Context, q audit.Query) ([]audit.AuditRecord, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.AuditRecord), args.Error(1)
}

// MockAlerter is a mock implementation of audit.Alerter
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) NotifyAuditFailure(ctx context.Context, record audit.AuditRecord, err error) error {
	args := m.Called(ctx, record, err)
	return args.Error(0)
}

// MockMailer is a mock implementation of util.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendEmail(ctx context.Context, recipient, subject, body string) error {
	args := m.Called(ctx, recipient, subject, body)
	return args.Error(0)
}
