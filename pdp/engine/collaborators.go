package engine

import (
	"context"
	"time"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

// UserDirectory resolves requesters. Resolve returns errors.ErrUserNotFound
// for unknown users; any other error is treated as the directory being unavailable.
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (*pdp_model.UserRecord, error)
	HasEmergencyAccess(ctx context.Context, userID string) (bool, error)
}

type ConsentVerifier interface {
	Verify(ctx context.Context, q pdp_model.ConsentQuery) (*pdp_model.ConsentOutcome, error)
}

// AuditSink persists audit records. It owns retries and alerting; the engine
// only logs a failed write.
type AuditSink interface {
	Write(ctx context.Context, record audit.AuditRecord) error
}

// DecisionCache memoizes decisions by fingerprint key. Implementations must be
// safe for concurrent use and must never serve an entry at or after its expiry.
type DecisionCache interface {
	Lookup(ctx context.Context, key string) (*pdp_model.AccessDecision, bool)
	Store(ctx context.Context, key string, decision *pdp_model.AccessDecision, ttl time.Duration)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (pdp_model.CacheStats, error)
}
