package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claims(role string, exp time.Time) Claims {
	return Claims{
		Email: "ops@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func pemPublic(t *testing.T, pub any) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestValidateJWTHMAC(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims("admin", time.Now().Add(time.Hour))).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, err := ValidateJWT(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, "u-1", got.Subject)

	_, err = ValidateJWT(tok, "other")
	assert.Error(t, err)
}

func TestValidateJWTExpired(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims("admin", time.Now().Add(-time.Minute))).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ValidateJWT(tok, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateJWTRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims("admin", time.Now().Add(time.Hour))).SignedString(key)
	require.NoError(t, err)

	got, err := ValidateJWT(tok, pemPublic(t, &key.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", got.Email)

	// an RSA token cannot be checked against a shared secret
	_, err = ValidateJWT(tok, "secret")
	assert.Error(t, err)
}

func TestValidateJWTECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims("user", time.Now().Add(time.Hour))).SignedString(key)
	require.NoError(t, err)

	got, err := ValidateJWT(tok, pemPublic(t, &key.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, "user", got.Role)
}

func TestValidateJWTRejectsNone(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims("admin", time.Now().Add(time.Hour))).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateJWT(tok, "secret")
	assert.Error(t, err)

	_, err = ValidateJWT("garbage", "secret")
	assert.Error(t, err)
}

func TestSignHMACRoundTrip(t *testing.T) {
	token, err := SignHMAC("s3cret", claims("admin", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	got, err := ValidateJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, "u-1", got.Subject)

	_, err = SignHMAC("", claims("admin", time.Now().Add(time.Hour)))
	assert.Error(t, err)
}
