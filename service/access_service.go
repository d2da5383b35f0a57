// api/service/access_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
	"github.com/dev-mohitbeniwal/consentgate/api/util"
)

const batchConcurrency = 8

// IAccessService defines the interface for access decision operations
type IAccessService interface {
	Evaluate(ctx context.Context, req pdp_model.AccessRequest) *pdp_model.AccessDecision
	EvaluateBatch(ctx context.Context, reqs []pdp_model.AccessRequest) ([]*pdp_model.AccessDecision, error)
	ClearCache(ctx context.Context) error
	CacheStats(ctx context.Context) (pdp_model.CacheStats, error)
}

// DecisionEngine is the part of the decision engine the service drives.
type DecisionEngine interface {
	Evaluate(ctx context.Context, req *pdp_model.AccessRequest) *pdp_model.AccessDecision
	ClearCache(ctx context.Context) error
	CacheStats(ctx context.Context) (pdp_model.CacheStats, error)
}

// AccessService evaluates requests and raises decision events
type AccessService struct {
	engine         DecisionEngine
	validationUtil *util.ValidationUtil
	eventBus       *util.EventBus
}

var _ IAccessService = &AccessService{}

// NewAccessService creates a new instance of AccessService
func NewAccessService(engine DecisionEngine, validationUtil *util.ValidationUtil, eventBus *util.EventBus) *AccessService {
	return &AccessService{
		engine:         engine,
		validationUtil: validationUtil,
		eventBus:       eventBus,
	}
}

func (s *AccessService) Evaluate(ctx context.Context, req pdp_model.AccessRequest) *pdp_model.AccessDecision {
	decision := s.engine.Evaluate(ctx, &req)
	s.publish(ctx, req, decision)
	return decision
}

// EvaluateBatch evaluates every request concurrently and returns the
// decisions in request order. Only the batch envelope can fail.
func (s *AccessService) EvaluateBatch(ctx context.Context, reqs []pdp_model.AccessRequest) ([]*pdp_model.AccessDecision, error) {
	if err := s.validationUtil.ValidateBatch(reqs); err != nil {
		logger.Warn("Rejected access batch", zap.Error(err), zap.Int("size", len(reqs)))
		return nil, err
	}

	start := time.Now()
	decisions := make([]*pdp_model.AccessDecision, len(reqs))
	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i := range reqs {
		i := i
		g.Go(func() error {
			decisions[i] = s.Evaluate(ctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Evaluated access batch",
		zap.Int("size", len(reqs)),
		zap.Duration("duration", time.Since(start)))
	return decisions, nil
}

func (s *AccessService) ClearCache(ctx context.Context) error {
	return s.engine.ClearCache(ctx)
}

func (s *AccessService) CacheStats(ctx context.Context) (pdp_model.CacheStats, error) {
	return s.engine.CacheStats(ctx)
}

func (s *AccessService) publish(ctx context.Context, req pdp_model.AccessRequest, decision *pdp_model.AccessDecision) {
	if s.eventBus == nil || decision == nil {
		return
	}
	event := util.DecisionEvent{
		Request:  req,
		Decision: *decision.Clone(),
		Metadata: pdp_model.RequestMetadataFrom(ctx),
	}
	if req.EmergencyOverride {
		s.eventBus.Publish(ctx, util.EventEmergencyAccess, event)
	}
	if decision.RiskLevel == pdp_model.RiskCritical {
		s.eventBus.Publish(ctx, util.EventCriticalDecision, event)
	}
}
