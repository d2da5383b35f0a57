// api/cli/app.go
package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	"github.com/dev-mohitbeniwal/consentgate/api/config"
	"github.com/dev-mohitbeniwal/consentgate/api/db"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/dao"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/engine"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/policy"
	"github.com/dev-mohitbeniwal/consentgate/api/service"
	"github.com/dev-mohitbeniwal/consentgate/api/util"
)

// app holds the wired decision engine and everything it depends on.
type app struct {
	cfg      *config.Configuration
	engine   *engine.AccessDecisionEngine
	eventBus *util.EventBus
	services *service.Services
	chain    *audit.ChainRepository
}

// buildApp connects to the stores and wires the engine. Redis is only
// dialed when withRedis is set or the decision cache lives there.
func buildApp(ctx context.Context, cfg *config.Configuration, withRedis bool) (*app, error) {
	if err := db.InitNeo4j(ctx); err != nil {
		return nil, err
	}
	if err := dao.EnsureSchema(ctx, db.Neo4jDriver, cfg.Neo4j.Database); err != nil {
		db.CloseNeo4j()
		return nil, err
	}

	if withRedis || cfg.PDP.CacheBackend == config.CacheBackendRedis {
		if err := db.InitRedis(ctx); err != nil {
			db.CloseNeo4j()
			return nil, err
		}
	}

	a := &app{cfg: cfg}
	if err := a.wire(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg := a.cfg

	tables := policy.DefaultTables()
	if cfg.PDP.PolicyFile != "" {
		loaded, err := policy.LoadTables(cfg.PDP.PolicyFile)
		if err != nil {
			return err
		}
		tables = loaded
	}

	notificationSvc := util.NewNotificationService(nil, cfg.Notification.Recipients)

	esRepo, err := audit.NewElasticsearchRepository(cfg.Elasticsearch.URL, cfg.Elasticsearch.Index)
	if err != nil {
		return fmt.Errorf("failed to create audit repository: %w", err)
	}
	auditOpts := []audit.ServiceOption{
		audit.WithRetry(cfg.Audit.RetryAttempts, cfg.Audit.RetryBackoff),
		audit.WithAlerter(notificationSvc),
	}
	if cfg.Audit.ChainFile != "" {
		a.chain, err = audit.OpenChain(cfg.Audit.ChainFile)
		if err != nil {
			return err
		}
		auditOpts = append(auditOpts, audit.WithMirror(a.chain))
	}
	auditService := audit.NewService(esRepo, auditOpts...)

	cache, err := util.NewDecisionCache(cfg.PDP, db.RedisClient, cfg.Redis.EncryptionKey)
	if err != nil {
		return err
	}

	a.engine = engine.NewAccessDecisionEngine(
		dao.NewUserDirectoryDAO(db.Neo4jDriver, cfg.Neo4j.Database),
		dao.NewConsentDAO(db.Neo4jDriver, cfg.Neo4j.Database),
		auditService,
		tables,
		engine.Config{CacheTTL: cfg.PDP.CacheTTL, AuditTimeout: cfg.PDP.AuditTimeout},
		engine.WithCache(cache),
	)

	a.eventBus = util.NewEventBus()
	a.services = service.InitializeServices(
		a.engine,
		auditService,
		util.NewValidationUtil(cfg.PDP.MaxBatchSize),
		notificationSvc,
		a.eventBus,
	)
	return nil
}

// shutdown drains pending audit writes and notifications before the
// connections they use are closed.
func (a *app) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.engine != nil {
		if err := a.engine.Shutdown(ctx); err != nil {
			logger.Error("Audit writes did not drain", zap.Error(err))
		}
	}
	if a.eventBus != nil {
		a.eventBus.Wait()
	}
	a.close()
}

func (a *app) close() {
	if a.chain != nil {
		if err := a.chain.Close(); err != nil {
			logger.Error("Error closing audit chain", zap.Error(err))
		}
	}
	db.CloseRedis()
	db.CloseNeo4j()
}
