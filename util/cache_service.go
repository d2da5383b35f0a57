// api/util/cache_service.go

package util

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dev-mohitbeniwal/consentgate/api/config"
	"github.com/dev-mohitbeniwal/consentgate/api/crypto"
	"github.com/dev-mohitbeniwal/consentgate/api/db"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/engine"
)

// NewDecisionCache builds the configured decision cache backend. The Redis
// backend requires a connected client and a 32-byte encryption key.
func NewDecisionCache(cfg config.PDPConfiguration, client *redis.Client, encryptionKey string) (engine.DecisionCache, error) {
	switch cfg.CacheBackend {
	case "", config.CacheBackendMemory:
		return engine.NewMemoryDecisionCache(cfg.CacheSize), nil
	case config.CacheBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis decision cache requires a redis client")
		}
		provider, err := crypto.NewAESGCM([]byte(encryptionKey))
		if err != nil {
			return nil, fmt.Errorf("redis decision cache: %w", err)
		}
		return db.NewRedisDecisionCache(client, provider), nil
	default:
		return nil, fmt.Errorf("unknown decision cache backend %q", cfg.CacheBackend)
	}
}
