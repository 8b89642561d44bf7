package util

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the bearer token claims the API reads.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// parsePublicKey decodes a PEM-encoded PKIX public key.
func parsePublicKey(pemKey string) (any, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}

// keyFor returns the verification key for alg. HMAC algorithms use
// keyMaterial as the shared secret; RSA and ECDSA expect a PEM public key.
func keyFor(alg, keyMaterial string) (any, error) {
	switch alg {
	case "HS256", "HS384", "HS512":
		return []byte(keyMaterial), nil
	case "RS256", "RS384", "RS512":
		pub, err := parsePublicKey(keyMaterial)
		if err != nil {
			return nil, err
		}
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not RSA")
		}
		return key, nil
	case "ES256", "ES384", "ES512":
		pub, err := parsePublicKey(keyMaterial)
		if err != nil {
			return nil, err
		}
		key, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not ECDSA")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", alg)
	}
}

// ValidateJWT verifies tokenString with keyMaterial and returns its claims.
// The algorithm is taken from the token header and must be one of the
// HS*, RS* or ES* families.
func ValidateJWT(tokenString, keyMaterial string) (*Claims, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token header: %w", err)
	}
	alg, _ := unverified.Header["alg"].(string)
	if alg == "" {
		return nil, errors.New("token header missing 'alg' field")
	}
	key, err := keyFor(alg, keyMaterial)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{alg}))
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SignHMAC issues an HS256 token over claims.
func SignHMAC(secret string, claims Claims) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
