package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/policy"
	test_mock "github.com/dev-mohitbeniwal/consentgate/api/test/mock"
)

type fixture struct {
	dir      *test_mock.MockUserDirectory
	verifier *test_mock.MockConsentVerifier
	sink     *test_mock.MockAuditService
	engine   *engine.AccessDecisionEngine
}

func newFixture(t *testing.T, opts ...engine.Option) *fixture {
	f := &fixture{
		dir:      new(test_mock.MockUserDirectory),
		verifier: new(test_mock.MockConsentVerifier),
		sink:     new(test_mock.MockAuditService),
	}
	f.engine = engine.NewAccessDecisionEngine(f.dir, f.verifier, f.sink, policy.DefaultTables(), engine.Config{
		CacheTTL:     time.Minute,
		AuditTimeout: time.Second,
	}, opts...)
	return f
}

// drain waits for background audit writes so sink expectations can be checked.
func (f *fixture) drain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.engine.Shutdown(ctx))
}

func (f *fixture) expectAudit(outcome string) {
	f.sink.On("Write", mock.Anything, mock.MatchedBy(func(r audit.AuditRecord) bool {
		return r.Outcome == outcome
	})).Return(nil)
}

func validConsent(entries ...pdp_model.CategoryConsent) *pdp_model.ConsentOutcome {
	return &pdp_model.ConsentOutcome{Valid: true, RiskLevel: pdp_model.RiskLow, Categories: entries}
}

func assertPartition(t *testing.T, req *pdp_model.AccessRequest, d *pdp_model.AccessDecision) {
	t.Helper()
	all := append(append([]string{}, d.Accessible...), d.Restricted...)
	assert.ElementsMatch(t, req.UniqueCategories(), all)
	if d.Allowed {
		assert.NotEmpty(t, d.Accessible)
	}
}

func TestAccessDecisionEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("InactiveUserDenied", func(t *testing.T) {
		f := newFixture(t)
		user := activePhysician("u-1")
		user.Active = false
		f.dir.On("Resolve", mock.Anything, "u-1").Return(user, nil)
		f.expectAudit(audit.OutcomeDeniedUnauthorized)
		req := viewRequest("demographics")

		d := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.False(t, d.Allowed)
		assert.False(t, d.ConsentVerified)
		assert.Equal(t, []string{engine.ReasonRequesterInactive}, d.RestrictionReasons)
		assertPartition(t, req, d)
		f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
		f.sink.AssertNumberOfCalls(t, "Write", 1)
	})

	t.Run("PartialRestriction", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
			consentEntry("lab_results", false, pdp_model.SensitivityNormal),
		), nil)
		f.expectAudit(audit.OutcomeCompleted)
		req := viewRequest("demographics", "lab_results")

		d := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.True(t, d.Allowed)
		assert.True(t, d.ConsentVerified)
		assert.Equal(t, []string{"demographics"}, d.Accessible)
		assert.Equal(t, []string{"lab_results"}, d.Restricted)
		assert.False(t, d.AuditRequired)
		assert.Empty(t, d.Error)
		assertPartition(t, req, d)
	})

	t.Run("WithheldElevatedCategoryRequiresAudit", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
			consentEntry("mental_health", false, pdp_model.SensitivityElevated),
		), nil)
		f.expectAudit(audit.OutcomeCompleted)
		req := viewRequest("demographics", "mental_health")

		d := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.True(t, d.Allowed)
		assert.Equal(t, []string{"demographics"}, d.Accessible)
		assert.Equal(t, []string{"mental_health"}, d.Restricted)
		assert.True(t, d.AuditRequired)
		assertPartition(t, req, d)
	})

	t.Run("CriticalCategoryExport", func(t *testing.T) {
		f := newFixture(t)
		user := activePhysician("u-1")
		user.Permissions = append(user.Permissions, policy.PermPatientDataExport)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(user, nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("psychotherapy_notes", true, pdp_model.SensitivityCritical),
		), nil)
		f.expectAudit(audit.OutcomeCompleted)
		req := viewRequest("psychotherapy_notes")
		req.AccessType = pdp_model.AccessExport

		d := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.False(t, d.Allowed)
		assert.True(t, d.AuditRequired)
		assert.Equal(t, pdp_model.RiskHigh, d.RiskLevel)
		assert.Equal(t, []string{"psychotherapy_notes"}, d.Restricted)
	})

	t.Run("InvalidConsentDenied", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(&pdp_model.ConsentOutcome{
			Valid:         false,
			RiskLevel:     pdp_model.RiskMedium,
			Justification: "consent revoked",
		}, nil)
		f.expectAudit(audit.OutcomeDeniedNoConsent)
		req := viewRequest("demographics", "medications")

		d := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.False(t, d.Allowed)
		assert.False(t, d.ConsentVerified)
		assert.Equal(t, []string{"consent revoked"}, d.RestrictionReasons)
		assertPartition(t, req, d)
	})

	t.Run("CacheHitSkipsCollaboratorsAndAudit", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
			consentEntry("medications", true, pdp_model.SensitivityNormal),
		), nil)
		f.expectAudit(audit.OutcomeCompleted)

		first := f.engine.Evaluate(ctx, viewRequest("demographics", "medications"))
		second := f.engine.Evaluate(ctx, viewRequest("medications", "demographics", "medications"))
		f.drain(t)

		assert.Equal(t, first, second)
		f.verifier.AssertNumberOfCalls(t, "Verify", 1)
		f.dir.AssertNumberOfCalls(t, "Resolve", 1)
		f.sink.AssertNumberOfCalls(t, "Write", 1)
	})

	t.Run("DifferentPurposeMissesCache", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
		), nil)
		f.expectAudit(audit.OutcomeCompleted)

		f.engine.Evaluate(ctx, viewRequest("demographics"))
		req := viewRequest("demographics")
		req.Purpose = "research"
		f.engine.Evaluate(ctx, req)
		f.drain(t)

		f.verifier.AssertNumberOfCalls(t, "Verify", 2)
	})

	t.Run("CacheEntryExpires", func(t *testing.T) {
		clock := newFakeClock()
		f := newFixture(t, engine.WithCache(engine.NewMemoryDecisionCacheWithClock(0, clock.Now)))
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
		), nil)
		f.expectAudit(audit.OutcomeCompleted)

		f.engine.Evaluate(ctx, viewRequest("demographics"))
		clock.Advance(time.Minute)
		f.engine.Evaluate(ctx, viewRequest("demographics"))
		f.drain(t)

		f.verifier.AssertNumberOfCalls(t, "Verify", 2)
		f.sink.AssertNumberOfCalls(t, "Write", 2)
	})

	t.Run("EmergencyWithoutPrivilege", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.dir.On("HasEmergencyAccess", mock.Anything, "u-1").Return(false, nil)
		f.expectAudit(audit.OutcomeDeniedUnauthorized)
		req := viewRequest("mental_health")
		req.EmergencyOverride = true

		d := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.False(t, d.Allowed)
		assert.Equal(t, []string{engine.ReasonNoEmergencyAccess}, d.RestrictionReasons)
		f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("EmergencyRaisesRiskAndAudit", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.dir.On("HasEmergencyAccess", mock.Anything, "u-1").Return(true, nil)
		f.verifier.On("Verify", mock.Anything, mock.MatchedBy(func(q pdp_model.ConsentQuery) bool {
			return q.EmergencyOverride
		})).Return(validConsent(consentEntry("medications", true, pdp_model.SensitivityNormal)), nil)
		f.sink.On("Write", mock.Anything, mock.MatchedBy(func(r audit.AuditRecord) bool {
			return r.EmergencyOverride && r.RiskLevel == string(pdp_model.RiskHigh)
		})).Return(nil)
		req := viewRequest("medications")
		req.EmergencyOverride = true

		d := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.True(t, d.Allowed)
		assert.True(t, d.AuditRequired)
		assert.Equal(t, pdp_model.RiskHigh, d.RiskLevel)
		f.sink.AssertExpectations(t)
	})

	t.Run("VerifierFailureFailsClosed", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
		f.expectAudit(audit.OutcomeSystemicFault)
		req := viewRequest("demographics")

		d := f.engine.Evaluate(ctx, req)
		d2 := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.False(t, d.Allowed)
		assert.True(t, d.IsSystemicFault())
		assert.Equal(t, pdp_model.RiskCritical, d.RiskLevel)
		assert.Contains(t, d.Error, "timeout")
		assertPartition(t, req, d)
		assert.True(t, d2.IsSystemicFault())
		// Faults are not cached.
		f.verifier.AssertNumberOfCalls(t, "Verify", 2)
	})

	t.Run("MalformedConsentFailsClosed", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(&pdp_model.ConsentOutcome{
			Valid:     true,
			RiskLevel: "extreme",
		}, nil)
		f.expectAudit(audit.OutcomeSystemicFault)

		d := f.engine.Evaluate(ctx, viewRequest("demographics"))
		f.drain(t)

		assert.True(t, d.IsSystemicFault())
		assert.Contains(t, d.Error, pdp_errors.ErrMalformedConsent.Error())
	})

	t.Run("InvalidRequestIsAuditedFault", func(t *testing.T) {
		f := newFixture(t)
		f.expectAudit(audit.OutcomeSystemicFault)
		req := viewRequest()

		d := f.engine.Evaluate(ctx, req)
		f.drain(t)

		assert.True(t, d.IsSystemicFault())
		assert.Empty(t, d.Accessible)
		f.dir.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		f.sink.AssertNumberOfCalls(t, "Write", 1)
	})

	t.Run("PanicRecovered", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			panic("boom")
		}).Return(nil, nil)
		f.expectAudit(audit.OutcomeSystemicFault)

		d := f.engine.Evaluate(ctx, viewRequest("demographics"))
		f.drain(t)

		assert.True(t, d.IsSystemicFault())
		assert.Contains(t, d.Error, "boom")
	})

	t.Run("CancelledContext", func(t *testing.T) {
		f := newFixture(t)
		f.expectAudit(audit.OutcomeSystemicFault)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		d := f.engine.Evaluate(cctx, viewRequest("demographics"))
		f.drain(t)

		assert.True(t, d.IsSystemicFault())
		assert.Contains(t, d.Error, context.Canceled.Error())
		f.dir.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		// The audit write is detached from the caller's cancellation.
		f.sink.AssertNumberOfCalls(t, "Write", 1)
	})

	t.Run("AuditFailureDoesNotChangeDecision", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
		), nil)
		f.sink.On("Write", mock.Anything, mock.Anything).Return(pdp_errors.ErrAuditWrite)

		d := f.engine.Evaluate(ctx, viewRequest("demographics"))
		f.drain(t)

		assert.True(t, d.Allowed)
		assert.Empty(t, d.Error)
	})

	t.Run("AuditRecordCarriesMetadata", func(t *testing.T) {
		f := newFixture(t, engine.WithIDGenerator(func() string { return "audit-1" }))
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
		), nil)
		f.sink.On("Write", mock.Anything, mock.MatchedBy(func(r audit.AuditRecord) bool {
			return r.ID == "audit-1" &&
				r.ClientIP == "10.0.0.7" &&
				r.SessionID == "s-9" &&
				r.SubjectID == "p-1" &&
				r.Allowed &&
				r.ConsentVerified
		})).Return(nil)
		mctx := pdp_model.WithRequestMetadata(ctx, pdp_model.RequestMetadata{ClientIP: "10.0.0.7", SessionID: "s-9"})

		f.engine.Evaluate(mctx, viewRequest("demographics"))
		f.drain(t)

		f.sink.AssertExpectations(t)
	})

	t.Run("ReloadClearsCache", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
		), nil)
		f.expectAudit(audit.OutcomeCompleted)

		f.engine.Evaluate(ctx, viewRequest("demographics"))
		require.NoError(t, f.engine.SetPolicyTables(ctx, policy.DefaultTables()))
		stats, err := f.engine.CacheStats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.Size)

		f.engine.Evaluate(ctx, viewRequest("demographics"))
		f.drain(t)
		f.verifier.AssertNumberOfCalls(t, "Verify", 2)
	})

	t.Run("EvaluateAfterShutdownAuditsInline", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
		), nil)
		f.expectAudit(audit.OutcomeCompleted)
		f.drain(t)

		d := f.engine.Evaluate(ctx, viewRequest("demographics"))

		assert.True(t, d.Allowed)
		f.sink.AssertNumberOfCalls(t, "Write", 1)
	})

	t.Run("ConcurrentEvaluations", func(t *testing.T) {
		f := newFixture(t)
		f.dir.On("Resolve", mock.Anything, "u-1").Return(activePhysician("u-1"), nil)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(validConsent(
			consentEntry("demographics", true, pdp_model.SensitivityNormal),
			consentEntry("mental_health", false, pdp_model.SensitivityElevated),
		), nil)
		f.sink.On("Write", mock.Anything, mock.Anything).Return(nil)

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := viewRequest("demographics", "mental_health")
				d := f.engine.Evaluate(ctx, req)
				assert.Equal(t, []string{"demographics"}, d.Accessible)
				assertPartition(t, req, d)
			}()
		}
		wg.Wait()
		f.drain(t)
	})
}
