package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const (
	// TokenSize128 is 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 is 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken returns size random bytes encoded as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken is the deterministic SHA-256 (base64url) of a bearer
// secret. Refresh and password-reset tokens are stored and looked up by this
// value so a database leak does not leak usable tokens.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// EqualFingerprint reports whether token fingerprints to fp, in constant time.
func EqualFingerprint(token, fp string) bool {
	return subtle.ConstantTimeCompare([]byte(FingerprintToken(token)), []byte(fp)) == 1
}
