// api/service/access_service_test.go
package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
	"github.com/dev-mohitbeniwal/consentgate/api/service"
	test_mock "github.com/dev-mohitbeniwal/consentgate/api/test/mock"
	"github.com/dev-mohitbeniwal/consentgate/api/util"
)

// stubEngine answers every request with a decision derived from its subject.
type stubEngine struct {
	mu    sync.Mutex
	calls int
}

func (e *stubEngine) Evaluate(ctx context.Context, req *pdp_model.AccessRequest) *pdp_model.AccessDecision {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	risk := pdp_model.RiskLow
	if req.SubjectID == "critical" {
		risk = pdp_model.RiskCritical
	}
	return &pdp_model.AccessDecision{
		Allowed:    true,
		Accessible: []string{req.SubjectID},
		Restricted: []string{},
		RiskLevel:  risk,
	}
}

func (e *stubEngine) ClearCache(ctx context.Context) error { return nil }

func (e *stubEngine) CacheStats(ctx context.Context) (pdp_model.CacheStats, error) {
	return pdp_model.CacheStats{}, nil
}

func TestAccessService(t *testing.T) {
	ctx := context.Background()

	t.Run("BatchKeepsRequestOrder", func(t *testing.T) {
		svc := service.NewAccessService(&stubEngine{}, util.NewValidationUtil(50), util.NewEventBus())
		reqs := make([]pdp_model.AccessRequest, 20)
		for i := range reqs {
			reqs[i] = pdp_model.AccessRequest{SubjectID: fmt.Sprintf("p-%d", i)}
		}

		decisions, err := svc.EvaluateBatch(ctx, reqs)

		require.NoError(t, err)
		require.Len(t, decisions, len(reqs))
		for i, d := range decisions {
			assert.Equal(t, []string{fmt.Sprintf("p-%d", i)}, d.Accessible)
		}
	})

	t.Run("BatchTooLarge", func(t *testing.T) {
		engine := &stubEngine{}
		svc := service.NewAccessService(engine, util.NewValidationUtil(2), util.NewEventBus())

		_, err := svc.EvaluateBatch(ctx, make([]pdp_model.AccessRequest, 3))

		assert.ErrorIs(t, err, pdp_errors.ErrBatchTooLarge)
		assert.Zero(t, engine.calls)
	})

	t.Run("PublishesDecisionEvents", func(t *testing.T) {
		bus := util.NewEventBus()
		var mu sync.Mutex
		seen := map[string]int{}
		record := func(ctx context.Context, e util.Event) error {
			mu.Lock()
			seen[e.Type]++
			mu.Unlock()
			return nil
		}
		bus.Subscribe(util.EventEmergencyAccess, record)
		bus.Subscribe(util.EventCriticalDecision, record)
		svc := service.NewAccessService(&stubEngine{}, util.NewValidationUtil(50), bus)

		svc.Evaluate(ctx, pdp_model.AccessRequest{SubjectID: "p-1", EmergencyOverride: true})
		svc.Evaluate(ctx, pdp_model.AccessRequest{SubjectID: "critical"})
		svc.Evaluate(ctx, pdp_model.AccessRequest{SubjectID: "p-2"})
		bus.Wait()

		assert.Equal(t, map[string]int{util.EventEmergencyAccess: 1, util.EventCriticalDecision: 1}, seen)
	})
}

func TestAuditLogService(t *testing.T) {
	ctx := context.Background()

	t.Run("AppliesDefaultLimit", func(t *testing.T) {
		auditSvc := new(test_mock.MockAuditService)
		auditSvc.On("QueryLogs", mock.Anything, mock.MatchedBy(func(q audit.Query) bool {
			return q.Limit == 100 && q.SubjectID == "p-1"
		})).Return([]audit.AuditRecord{{ID: "a-1"}}, nil)
		svc := service.NewAuditLogService(auditSvc, util.NewValidationUtil(50))

		records, err := svc.QueryLogs(ctx, audit.Query{SubjectID: "p-1"})

		require.NoError(t, err)
		assert.Len(t, records, 1)
		auditSvc.AssertExpectations(t)
	})

	t.Run("RejectsInvertedRange", func(t *testing.T) {
		auditSvc := new(test_mock.MockAuditService)
		svc := service.NewAuditLogService(auditSvc, util.NewValidationUtil(50))
		now := time.Now()

		_, err := svc.QueryLogs(ctx, audit.Query{From: now, To: now.Add(-time.Minute)})

		assert.ErrorIs(t, err, pdp_errors.ErrInvalidSearchCriteria)
		auditSvc.AssertNotCalled(t, "QueryLogs", mock.Anything, mock.Anything)
	})
}
