// internal/auth/token.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid participant token")

// privateKey and publicKey sign and verify participant tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is the token lifetime; 0 issues tokens without an exp claim.
	tokenTTL time.Duration
)

// Init generates a fresh key pair. Tokens issued by a previous process
// stop verifying, so participants get new identities after a restart.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	privateKey, publicKey, tokenTTL = priv, pub, ttl
	return nil
}

// InitFromPath loads a raw ed25519 private key (64 bytes) or seed (32 bytes).
func InitFromPath(path string, ttl time.Duration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read signing key: %w", err)
	}
	switch len(data) {
	case ed25519.SeedSize:
		privateKey = ed25519.NewKeyFromSeed(data)
	case ed25519.PrivateKeySize:
		privateKey = ed25519.PrivateKey(data)
	default:
		return fmt.Errorf("signing key %s: unexpected length %d", path, len(data))
	}
	publicKey = privateKey.Public().(ed25519.PublicKey)
	tokenTTL = ttl
	return nil
}

// CreateJWT signs a token with "sub" = participantID.
func CreateJWT(participantID string) (string, error) {
	if privateKey == nil {
		return "", errors.New("auth not initialised")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": participantID,
		"iat": now.Unix(),
	}
	if tokenTTL > 0 {
		claims["exp"] = now.Add(tokenTTL).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token and returns its subject.
func AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return sub, nil
}
