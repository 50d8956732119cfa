package auth_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalworks/verdict/internal/auth"
)

func TestJWTIssueAndValidate(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", 1*time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	orgID := uuid.New()

	token, expiresAt, err := mgr.IssueToken(userID, orgID, "Test User")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, orgID, claims.OrgID)
	assert.Equal(t, "Test User", claims.Name)
}

// newTestJWTManagerWithKey creates a JWTManager backed by a real Ed25519 key pair
// written to temp PEM files, and returns the raw private key for forging tokens.
func newTestJWTManagerWithKey(t *testing.T) (*auth.JWTManager, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	dir := t.TempDir()

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})
	privPath := filepath.Join(dir, "priv.pem")
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	pubPath := filepath.Join(dir, "pub.pem")
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	mgr, err := auth.NewJWTManager(privPath, pubPath, time.Hour)
	require.NoError(t, err)
	return mgr, priv
}

// forgeToken signs a JWT with the given private key and claims.
func forgeToken(t *testing.T, privKey ed25519.PrivateKey, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(privKey)
	require.NoError(t, err)
	return signed
}

func registeredClaims(issuer string, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{"verdict"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		ID:        uuid.New().String(),
	}
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	mgr, privKey := newTestJWTManagerWithKey(t)

	token := forgeToken(t, privKey, &auth.Claims{
		RegisteredClaims: registeredClaims("not-verdict", time.Now().UTC()),
		UserID:           uuid.New(),
		OrgID:            uuid.New(),
	})

	_, err := mgr.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid issuer")
}

func TestValidateToken_WrongAudience(t *testing.T) {
	mgr, privKey := newTestJWTManagerWithKey(t)

	claims := registeredClaims("verdict", time.Now().UTC())
	claims.Audience = jwt.ClaimStrings{"someone-else"}
	token := forgeToken(t, privKey, &auth.Claims{
		RegisteredClaims: claims,
		UserID:           uuid.New(),
		OrgID:            uuid.New(),
	})

	_, err := mgr.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_MissingTenancyClaims(t *testing.T) {
	mgr, privKey := newTestJWTManagerWithKey(t)

	token := forgeToken(t, privKey, &auth.Claims{
		RegisteredClaims: registeredClaims("verdict", time.Now().UTC()),
		UserID:           uuid.New(),
		// OrgID deliberately unset.
	})

	_, err := mgr.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing tenancy claims")
}

func TestValidateToken_Expired(t *testing.T) {
	mgr, privKey := newTestJWTManagerWithKey(t)

	claims := registeredClaims("verdict", time.Now().UTC().Add(-2*time.Hour))
	token := forgeToken(t, privKey, &auth.Claims{
		RegisteredClaims: claims,
		UserID:           uuid.New(),
		OrgID:            uuid.New(),
	})

	_, err := mgr.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_WrongKey(t *testing.T) {
	mgr, _ := newTestJWTManagerWithKey(t)
	_, otherKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	token := forgeToken(t, otherKey, &auth.Claims{
		RegisteredClaims: registeredClaims("verdict", time.Now().UTC()),
		UserID:           uuid.New(),
		OrgID:            uuid.New(),
	})

	_, err = mgr.ValidateToken(token)
	require.Error(t, err)
}
