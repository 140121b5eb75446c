package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// rawTokenBytes is the entropy of a raw refresh token (256 bits).
const rawTokenBytes = 32

// Digester computes keyed one-way digests of raw refresh tokens so the raw
// value is never stored. The HMAC key is derived from the configured secret
// with HKDF, so digests are stable across restarts but useless without the
// secret.
type Digester struct {
	key []byte
}

// NewDigester derives the refresh-token HMAC key from secret. secret must be
// non-empty; it is the operator-held value that makes stored digests
// non-invertible even if the database leaks.
func NewDigester(secret string) (*Digester, error) {
	if secret == "" {
		return nil, errors.New("refresh token secret must not be empty")
	}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("refresh-token-digest-v1"))
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return &Digester{key: key}, nil
}

// GenerateRawToken returns a new high-entropy opaque refresh token. The raw
// value exists only here and in the response to the client; only its digest
// is persisted. Callers must never log it.
func GenerateRawToken() (string, error) {
	b := make([]byte, rawTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest returns the hex-encoded HMAC-SHA256 of the raw token.
func (d *Digester) Digest(rawToken string) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(rawToken))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal performs constant-time comparison of the provided raw token's digest
// with the stored digest. Returns true only if they match.
func (d *Digester) Equal(rawToken, storedDigest string) bool {
	return subtle.ConstantTimeCompare([]byte(d.Digest(rawToken)), []byte(storedDigest)) == 1
}
