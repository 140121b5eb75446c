package security

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"commerce-auth-core/internal/keymaterial/domain"
	"commerce-auth-core/internal/keymaterial/repository"
)

// Names of the key-material records holding the signing key pair.
const (
	SigningKeyPrivateName = "jwt_signing_key_private"
	SigningKeyPublicName  = "jwt_signing_key_public"
)

// ErrKeyUnavailable is returned when the signing key can neither be loaded
// nor generated. It is fatal: an authentication service must not start with
// an ephemeral key, which would invalidate every previously issued token.
var ErrKeyUnavailable = errors.New("signing key unavailable")

// KeyMaterialStore is the minimal key-material repository needed by the provisioner.
type KeyMaterialStore interface {
	GetByName(ctx context.Context, name string) (*domain.Record, error)
	Create(ctx context.Context, r *domain.Record) error
}

// Provisioner obtains the fleet-wide signing key pair, generating and
// persisting it exactly once. Every subsequent start, on any instance,
// reconstructs the same pair from the store.
type Provisioner struct {
	store KeyMaterialStore
	bits  int
	now   func() time.Time
}

// NewProvisioner returns a Provisioner that persists through store and
// generates RSA keys of the given modulus size on first boot.
func NewProvisioner(store KeyMaterialStore, bits int) *Provisioner {
	return &Provisioner{store: store, bits: bits, now: time.Now}
}

// ObtainKeyPair loads the persisted signing key pair, generating and storing
// one first if none exists. Concurrent first boots are resolved by the unique
// name constraint on the store: the instance whose insert fails refetches and
// adopts the winner's key instead of its own in-memory one, so all instances
// end up signing with byte-identical keys.
func (p *Provisioner) ObtainKeyPair(ctx context.Context) (crypto.Signer, crypto.PublicKey, error) {
	signer, pub, err := p.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if signer != nil {
		return signer, pub, nil
	}

	key, err := GenerateKeyPair(p.bits)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate: %v", ErrKeyUnavailable, err)
	}
	privPEM, err := EncodePrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode private: %v", ErrKeyUnavailable, err)
	}
	pubPEM, err := EncodePublicKey(key.Public())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode public: %v", ErrKeyUnavailable, err)
	}

	now := p.now().UTC()
	err = p.store.Create(ctx, &domain.Record{
		Name:        SigningKeyPrivateName,
		Value:       privPEM,
		Description: "JWT signing key, private half (PKCS#8 PEM)",
		CreatedAt:   now,
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicateName) {
		return nil, nil, fmt.Errorf("%w: persist private: %v", ErrKeyUnavailable, err)
	}
	if err == nil {
		err = p.store.Create(ctx, &domain.Record{
			Name:        SigningKeyPublicName,
			Value:       pubPEM,
			Description: "JWT signing key, public half (PKIX PEM)",
			CreatedAt:   now,
		})
		if err != nil && !errors.Is(err, repository.ErrDuplicateName) {
			return nil, nil, fmt.Errorf("%w: persist public: %v", ErrKeyUnavailable, err)
		}
	}

	// Re-read from the store regardless of who won the race, so the returned
	// pair is always the persisted one.
	signer, pub, err = p.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if signer == nil {
		return nil, nil, fmt.Errorf("%w: key pair missing after provisioning", ErrKeyUnavailable)
	}
	return signer, pub, nil
}

// load returns the stored key pair, or (nil, nil, nil) when no private key
// record exists yet. A missing public record is reconstructed from the
// private key; a private record that fails to decode is fatal.
func (p *Provisioner) load(ctx context.Context) (crypto.Signer, crypto.PublicKey, error) {
	privRec, err := p.store.GetByName(ctx, SigningKeyPrivateName)
	if err != nil {
		return nil, nil, err
	}
	if privRec == nil {
		return nil, nil, nil
	}
	signer, err := DecodePrivateKey(privRec.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decode private: %v", ErrKeyUnavailable, err)
	}
	pubRec, err := p.store.GetByName(ctx, SigningKeyPublicName)
	if err != nil {
		return nil, nil, err
	}
	if pubRec == nil {
		return signer, signer.Public(), nil
	}
	pub, err := DecodePublicKey(pubRec.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decode public: %v", ErrKeyUnavailable, err)
	}
	return signer, pub, nil
}
