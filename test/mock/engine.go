// test/mock/engine.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

// MockUserDirectory is a mock implementation of engine.UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) Resolve(ctx context.Context, userID string) (*pdp_model.UserRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdp_model.UserRecord), args.Error(1)
}

func (m *MockUserDirectory) HasEmergencyAccess(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockConsentVerifier is a mock implementation of engine.ConsentVerifier
type MockConsentVerifier struct {
	mock.Mock
}

func (m *MockConsentVerifier) Verify(ctx context.Context, q pdp_model.ConsentQuery) (*pdp_model.ConsentOutcome, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdp_model.ConsentOutcome), args.Error(1)
}
