// api/middleware/group_auth.go
package middleware

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
)

type JSONWebKey struct {
	Kty string `json:"kty"`
	E   string `json:"e"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
}

type Jwks struct {
	Keys []JSONWebKey `json:"keys"`
}

type CognitoClaims struct {
	jwt.StandardClaims
	CognitoGroups   []string `json:"cognito:groups"`
	CognitoUsername string   `json:"cognito:username"`
	EmailVerified   bool     `json:"email_verified"`
	Email           string   `json:"email"`
}

// KeySource resolves the RSA key that signed a token.
type KeySource interface {
	PublicKey(kid string) (*rsa.PublicKey, error)
}

const jwksRefreshInterval = time.Hour

// CognitoKeySource fetches a user pool's JWKS and caches it. An unknown kid
// forces a refresh so rotated keys are picked up without a restart.
type CognitoKeySource struct {
	url    string
	client *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewCognitoKeySource(region, userPoolID string) *CognitoKeySource {
	return &CognitoKeySource{
		url:    fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, userPoolID),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *CognitoKeySource) PublicKey(kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := time.Since(s.fetchedAt) < jwksRefreshInterval
	s.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := s.refresh(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("no signing key with kid %q", kid)
}

func (s *CognitoKeySource) refresh() error {
	logger.Debug("Fetching JWKS", zap.String("url", s.url))
	resp, err := s.client.Get(s.url)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-OK HTTP status from JWKS endpoint: %d", resp.StatusCode)
	}

	var jwks Jwks
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}
	keys, err := ParseJWKS(jwks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	logger.Info("Loaded JWKS", zap.Int("keys", len(keys)))
	return nil
}

// ParseJWKS converts the RSA entries of a key set into public keys by kid.
func ParseJWKS(jwks Jwks) (map[string]*rsa.PublicKey, error) {
	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("failed to decode modulus of key %q: %w", k.Kid, err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("failed to decode exponent of key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no RSA keys found in JWKS")
	}
	return keys, nil
}

// GroupAuthMiddleware admits callers whose verified token carries at least
// one of requiredGroups. The token subject is stored as "userID".
func GroupAuthMiddleware(keys KeySource, requiredGroups []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			logger.Warn("No Authorization token provided", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := parseToken(keys, tokenString)
		if err != nil {
			logger.Warn("Rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if !isUserInGroups(claims, requiredGroups) {
			logger.Warn("User does not have the required groups",
				zap.String("sub", claims.Subject),
				zap.Strings("required", requiredGroups))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("requestingUser", claims.CognitoUsername)
		c.Next()
	}
}

func parseToken(keys KeySource, tokenString string) (*CognitoClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &CognitoClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		return keys.PublicKey(kid)
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CognitoClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token or wrong claims type")
}

func isUserInGroups(claims *CognitoClaims, requiredGroups []string) bool {
	for _, group := range requiredGroups {
		for _, userGroup := range claims.CognitoGroups {
			if userGroup == group {
				return true
			}
		}
	}
	return false
}
