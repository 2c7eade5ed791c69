package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

func signToken(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, exp time.Time, scopes ...string) string {
	t.Helper()
	claims := domain.CustomClaims{
		UserID:           "editor-1",
		Scopes:           map[string]bool{},
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}
	for _, s := range scopes {
		claims.Scopes[s] = true
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestRSAValidator(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewRSAValidator(&key.PublicKey)

	claims, err := v.VerifyToken("Bearer " + signToken(t, key, jwt.SigningMethodRS256, time.Now().Add(time.Hour), domain.ScopeWidgetsWrite))
	require.NoError(t, err)
	assert.Equal(t, "editor-1", claims.UserID)
	assert.True(t, claims.Scopes[domain.ScopeWidgetsWrite])

	_, err = v.VerifyToken(signToken(t, key, jwt.SigningMethodRS256, time.Now().Add(-time.Hour)))
	assert.Error(t, err, "expired token")

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = v.VerifyToken(signToken(t, other, jwt.SigningMethodRS256, time.Now().Add(time.Hour)))
	assert.Error(t, err, "foreign key")

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.VerifyToken(hs)
	assert.Error(t, err, "symmetric algorithm")
}

func TestParseRSAPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	pub, err := ParseRSAPublicKey(pemData)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = ParseRSAPublicKey(nil)
	assert.Error(t, err)
	_, err = ParseRSAPublicKey([]byte("junk"))
	assert.Error(t, err)
}

func TestRequireScope_PutsClaimsIntoContext(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var userID string
	h := RequireScope(NewRSAValidator(&key.PublicKey), domain.ScopeWidgetsWrite, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFrom(r.Context())
			require.True(t, ok)
			userID = c.UserID
		}))

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, jwt.SigningMethodRS256, time.Now().Add(time.Hour), domain.ScopeWidgetsWrite))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "editor-1", userID)
}
