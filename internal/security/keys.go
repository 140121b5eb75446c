package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
)

// ErrInvalidKey is returned when PEM or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

// GenerateKeyPair generates a new RSA signing key of the given modulus size.
// bits below 2048 are rejected: the provisioned key signs every token the
// fleet ever issues, so a weak key is not an acceptable degraded mode.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits < 2048 {
		return nil, errors.New("signing key must be at least 2048 bits")
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// EncodePrivateKey serializes the private key as PKCS#8 PEM. The encoding is
// stable across restarts: decoding the stored value must reproduce the key
// byte for byte.
func EncodePrivateKey(key crypto.Signer) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", err
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// EncodePublicKey serializes the public key as PKIX PEM.
func EncodePublicKey(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// DecodePrivateKey parses a PKCS#8 PEM private key produced by EncodePrivateKey.
func DecodePrivateKey(s string) (crypto.Signer, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, ErrInvalidKey
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidKey
	}
	return signer, nil
}

// DecodePublicKey parses a PKIX PEM public key produced by EncodePublicKey.
func DecodePublicKey(s string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, ErrInvalidKey
	}
	return x509.ParsePKIXPublicKey(block.Bytes)
}
