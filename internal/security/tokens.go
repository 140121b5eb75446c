package security

import (
	"crypto"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token is malformed, expired, or fails
// signature, issuer, or audience checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims holds JWT claims for the access token. The token is
// self-contained: the subject and tenant are re-derived from it on every
// request without a database round trip, and the jti is the key the
// revocation registry can deny it by before natural expiry.
type AccessClaims struct {
	jwt.RegisteredClaims
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
}

// TokenIssuer mints and verifies signed access tokens using the provisioned
// key pair. It keeps no state beyond the immutable keys, so it is safe for
// unsynchronized concurrent use.
type TokenIssuer struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
}

// NewTokenIssuer returns a TokenIssuer that signs with the given private key (RS256).
// issuer and audience are set on claims and validated on every verification.
func NewTokenIssuer(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
	}
}

// IssueAccess issues a short-lived access JWT for the given user, tenant, and session.
// Returns the signed token, its jti, and expiration time. No persistence side
// effect: access tokens are stateless and revoked out of band by jti.
func (p *TokenIssuer) IssueAccess(userID, tenantID, sessionID string) (token string, jti string, expiresAt time.Time, err error) {
	if _, ok := p.privateKey.Public().(*rsa.PublicKey); !ok {
		return "", "", time.Time{}, ErrInvalidToken
	}
	jti = uuid.New().String()
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID:  tenantID,
		SessionID: sessionID,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.privateKey)
	return token, jti, expiresAt, err
}

// ValidateAccess parses and validates the access token (signature, exp, iss, aud).
// Signature validity alone does not make the token acceptable: callers must
// also check the jti against the revocation registry.
func (p *TokenIssuer) ValidateAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
