// api/db/decision_cache.go
package db

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/consentgate/api/crypto"
	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

const decisionKeyPrefix = "pdp:decision:"

// RedisDecisionCache shares decisions between API instances. Values are
// encrypted CacheEntry documents; keys are fingerprint hashes only.
type RedisDecisionCache struct {
	client   *redis.Client
	provider crypto.Provider
	now      func() time.Time
}

func NewRedisDecisionCache(client *redis.Client, provider crypto.Provider) *RedisDecisionCache {
	return &RedisDecisionCache{client: client, provider: provider, now: time.Now}
}

// Lookup treats any backend failure as a miss.
func (c *RedisDecisionCache) Lookup(ctx context.Context, key string) (*pdp_model.AccessDecision, bool) {
	raw, err := c.client.Get(ctx, decisionKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	} else if err != nil {
		logger.Warn("Decision cache lookup failed", zap.Error(err))
		return nil, false
	}

	entry, err := decodeEntry(c.provider, raw)
	if err != nil {
		logger.Warn("Discarding unreadable cached decision", zap.Error(err))
		return nil, false
	}
	// Redis expiry is not trusted on its own: clocks and TTL rounding differ.
	if !entry.Servable(c.now()) {
		return nil, false
	}
	return &entry.Decision, true
}

func (c *RedisDecisionCache) Store(ctx context.Context, key string, decision *pdp_model.AccessDecision, ttl time.Duration) {
	if decision == nil || ttl <= 0 {
		return
	}
	entry := pdp_model.CacheEntry{Decision: *decision, ExpiresAt: c.now().Add(ttl)}
	encoded, err := encodeEntry(c.provider, entry)
	if err != nil {
		logger.Error("Failed to encode decision for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, decisionKeyPrefix+key, encoded, ttl).Err(); err != nil {
		logger.Warn("Failed to cache decision", zap.Error(err))
	}
}

func (c *RedisDecisionCache) Clear(ctx context.Context) error {
	keys, err := c.scan(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += 500 {
		end := min(start+500, len(keys))
		if err := c.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("%w: %w", pdp_errors.ErrCacheUnavailable, err)
		}
	}
	logger.Debug("Cleared cached decisions", zap.Int("count", len(keys)))
	return nil
}

func (c *RedisDecisionCache) Stats(ctx context.Context) (pdp_model.CacheStats, error) {
	keys, err := c.scan(ctx)
	if err != nil {
		return pdp_model.CacheStats{}, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, decisionKeyPrefix)
	}
	sort.Strings(keys)
	return pdp_model.CacheStats{Size: len(keys), Keys: keys}, nil
}

func (c *RedisDecisionCache) scan(ctx context.Context) ([]string, error) {
	keys := []string{}
	iter := c.client.Scan(ctx, 0, decisionKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", pdp_errors.ErrCacheUnavailable, err)
	}
	return keys, nil
}

func encodeEntry(provider crypto.Provider, entry pdp_model.CacheEntry) (string, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	encrypted, err := provider.Encrypt(entryJSON)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt cache entry: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func decodeEntry(provider crypto.Provider, raw string) (pdp_model.CacheEntry, error) {
	var entry pdp_model.CacheEntry
	encrypted, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return entry, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	entryJSON, err := provider.Decrypt(encrypted)
	if err != nil {
		return entry, fmt.Errorf("failed to decrypt cache entry: %w", err)
	}
	if err := json.Unmarshal(entryJSON, &entry); err != nil {
		return entry, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return entry, nil
}
