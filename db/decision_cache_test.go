// api/db/decision_cache_test.go
package db

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/consentgate/api/crypto"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

func TestEncodeDecodeEntry(t *testing.T) {
	provider, err := crypto.NewAESGCM(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	entry := pdp_model.CacheEntry{
		Decision: pdp_model.AccessDecision{
			Allowed:            true,
			ConsentVerified:    true,
			Accessible:         []string{"demographics"},
			Restricted:         []string{"mental_health"},
			RiskLevel:          pdp_model.RiskMedium,
			RestrictionReasons: []string{"mental_health: no consent for category"},
		},
		ExpiresAt: time.Date(2024, 3, 1, 12, 2, 0, 0, time.UTC),
	}

	encoded, err := encodeEntry(provider, entry)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "mental_health")

	decoded, err := decodeEntry(provider, encoded)
	require.NoError(t, err)
	assert.Equal(t, entry.Decision, decoded.Decision)
	assert.True(t, entry.ExpiresAt.Equal(decoded.ExpiresAt))
}

func TestDecodeEntryRejectsForeignKey(t *testing.T) {
	writer, err := crypto.NewAESGCM(bytes.Repeat([]byte("a"), 32))
	require.NoError(t, err)
	reader, err := crypto.NewAESGCM(bytes.Repeat([]byte("b"), 32))
	require.NoError(t, err)

	encoded, err := encodeEntry(writer, pdp_model.CacheEntry{ExpiresAt: time.Now()})
	require.NoError(t, err)

	_, err = decodeEntry(reader, encoded)
	assert.Error(t, err)

	_, err = decodeEntry(reader, "not base64!")
	assert.Error(t, err)
}
