package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/policy"
)

const (
	DefaultCacheTTL     = 2 * time.Minute
	DefaultAuditTimeout = 5 * time.Second

	ReasonSystemicFault = "systemic fault: access denied"
	reasonConsentDenied = "consent verification failed"
)

type Config struct {
	CacheTTL     time.Duration
	AuditTimeout time.Duration
}

type Option func(*AccessDecisionEngine)

// WithCache replaces the default in-memory decision cache.
func WithCache(cache DecisionCache) Option {
	return func(e *AccessDecisionEngine) { e.cache = cache }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *AccessDecisionEngine) { e.newID = newID }
}

// AccessDecisionEngine evaluates access requests. Every evaluation that is
// not served from cache produces exactly one audit record, and any failure
// of a collaborator yields a denial rather than an error.
type AccessDecisionEngine struct {
	authorizer   *Authorizer
	verifier     ConsentVerifier
	sink         AuditSink
	cache        DecisionCache
	cacheTTL     time.Duration
	auditTimeout time.Duration
	newID        func() string

	auditMu sync.Mutex
	closing bool
	audits  sync.WaitGroup
}

func NewAccessDecisionEngine(directory UserDirectory, verifier ConsentVerifier, sink AuditSink, tables *policy.Tables, cfg Config, opts ...Option) *AccessDecisionEngine {
	e := &AccessDecisionEngine{
		authorizer:   NewAuthorizer(directory, tables),
		verifier:     verifier,
		sink:         sink,
		cacheTTL:     cfg.CacheTTL,
		auditTimeout: cfg.AuditTimeout,
		newID:        uuid.NewString,
	}
	if e.cacheTTL <= 0 {
		e.cacheTTL = DefaultCacheTTL
	}
	if e.auditTimeout <= 0 {
		e.auditTimeout = DefaultAuditTimeout
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewMemoryDecisionCache(0)
	}
	return e
}

// evaluation is the result of one uncached pass through the pipeline.
type evaluation struct {
	decision *pdp_model.AccessDecision
	outcome  string
	reason   string
	cache    bool
}

// Evaluate always returns a decision. Faults are reported through the
// decision's Error field, never as a Go error.
func (e *AccessDecisionEngine) Evaluate(ctx context.Context, req *pdp_model.AccessRequest) *pdp_model.AccessDecision {
	if err := req.Validate(); err != nil {
		logger.Warn("Rejected malformed access request", zap.Error(err))
		result := fault(req, err)
		e.emitAudit(ctx, req, result)
		return result.decision
	}

	key := pdp_model.NewFingerprint(req).Key()
	if cached, ok := e.cache.Lookup(ctx, key); ok {
		logger.Debug("Cache hit for access request",
			zap.String("requesterID", req.RequesterID),
			zap.String("subjectID", req.SubjectID))
		return cached
	}

	result := e.evaluateSafely(ctx, req)
	if result.cache {
		e.cache.Store(ctx, key, result.decision, e.cacheTTL)
	}
	e.emitAudit(ctx, req, result)

	logger.Info("Access request evaluated",
		zap.String("requesterID", req.RequesterID),
		zap.String("subjectID", req.SubjectID),
		zap.String("accessType", string(req.AccessType)),
		zap.Bool("allowed", result.decision.Allowed),
		zap.String("outcome", result.outcome),
		zap.String("riskLevel", string(result.decision.RiskLevel)))
	return result.decision
}

func (e *AccessDecisionEngine) evaluateSafely(ctx context.Context, req *pdp_model.AccessRequest) (result evaluation) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic during access evaluation",
				zap.Any("panic", r),
				zap.String("requesterID", req.RequesterID))
			result = fault(req, fmt.Errorf("unexpected failure: %v", r))
		}
	}()
	return e.evaluate(ctx, req)
}

func (e *AccessDecisionEngine) evaluate(ctx context.Context, req *pdp_model.AccessRequest) evaluation {
	if err := ctx.Err(); err != nil {
		return fault(req, err)
	}

	auth, err := e.authorizer.Authorize(ctx, req)
	if err != nil {
		return fault(req, err)
	}
	if err := ctx.Err(); err != nil {
		return fault(req, err)
	}
	if !auth.Authorized {
		return evaluation{
			decision: &pdp_model.AccessDecision{
				Accessible:         []string{},
				Restricted:         req.UniqueCategories(),
				RiskLevel:          pdp_model.RiskHigh,
				AuditRequired:      true,
				RestrictionReasons: []string{auth.Reason},
			},
			outcome: audit.OutcomeDeniedUnauthorized,
			reason:  auth.Reason,
			cache:   true,
		}
	}

	consent, err := e.verifier.Verify(ctx, pdp_model.NewConsentQuery(req))
	if err != nil {
		return fault(req, fmt.Errorf("consent verifier: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return fault(req, err)
	}
	if err := consent.Validate(); err != nil {
		return fault(req, err)
	}
	if !consent.Valid {
		reason := consent.Justification
		if reason == "" {
			reason = reasonConsentDenied
		}
		return evaluation{
			decision: &pdp_model.AccessDecision{
				Accessible:         []string{},
				Restricted:         req.UniqueCategories(),
				RiskLevel:          consent.RiskLevel,
				AuditRequired:      true,
				RestrictionReasons: []string{reason},
			},
			outcome: audit.OutcomeDeniedNoConsent,
			reason:  reason,
			cache:   true,
		}
	}

	restrictions := EvaluateRestrictions(req.UniqueCategories(), consent)
	risk := restrictions.RiskLevel
	auditRequired := restrictions.AuditRequired
	if req.EmergencyOverride {
		risk = risk.Max(pdp_model.RiskHigh)
		auditRequired = true
	}

	return evaluation{
		decision: &pdp_model.AccessDecision{
			Allowed:            len(restrictions.Allowed) > 0,
			ConsentVerified:    true,
			Accessible:         restrictions.Allowed,
			Restricted:         restrictions.Restricted,
			RiskLevel:          risk,
			AuditRequired:      auditRequired,
			RestrictionReasons: restrictions.Reasons,
		},
		outcome: audit.OutcomeCompleted,
		reason:  strings.Join(restrictions.Reasons, "; "),
		cache:   true,
	}
}

// fault builds the fail-closed decision: nothing released, highest risk.
// Faults are never cached.
func fault(req *pdp_model.AccessRequest, err error) evaluation {
	restricted := req.UniqueCategories()
	if restricted == nil {
		restricted = []string{}
	}
	return evaluation{
		decision: &pdp_model.AccessDecision{
			Accessible:         []string{},
			Restricted:         restricted,
			RiskLevel:          pdp_model.RiskCritical,
			AuditRequired:      true,
			RestrictionReasons: []string{ReasonSystemicFault},
			Error:              err.Error(),
		},
		outcome: audit.OutcomeSystemicFault,
		reason:  ReasonSystemicFault,
	}
}

// ClearCache drops every memoized decision.
func (e *AccessDecisionEngine) ClearCache(ctx context.Context) error {
	if err := e.cache.Clear(ctx); err != nil {
		return err
	}
	logger.Info("Decision cache cleared")
	return nil
}

func (e *AccessDecisionEngine) CacheStats(ctx context.Context) (pdp_model.CacheStats, error) {
	return e.cache.Stats(ctx)
}

// SetPolicyTables swaps the role and permission tables and clears the cache,
// since cached decisions were computed under the old tables.
func (e *AccessDecisionEngine) SetPolicyTables(ctx context.Context, tables *policy.Tables) error {
	e.authorizer.SetTables(tables)
	return e.ClearCache(ctx)
}

func (e *AccessDecisionEngine) PolicyTables() *policy.Tables {
	return e.authorizer.Tables()
}

// Shutdown waits for in-flight audit writes, or until ctx is done.
// Evaluations that race with it audit synchronously.
func (e *AccessDecisionEngine) Shutdown(ctx context.Context) error {
	e.auditMu.Lock()
	e.closing = true
	e.auditMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.audits.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for audit writes: %w", ctx.Err())
	}
}
