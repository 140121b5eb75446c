// Package telemetry holds the token-lifecycle metrics and event publishing glue.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the counters the token-lifecycle core reports. All methods
// are nil-safe so components can run unmetered in tests.
type Metrics struct {
	tokensIssued     metric.Int64Counter
	rotations        metric.Int64Counter
	revocationChecks metric.Int64Counter
	gateDenials      metric.Int64Counter
}

// NewMetrics creates the counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	tokensIssued, err := meter.Int64Counter("auth.tokens.issued",
		metric.WithDescription("Tokens minted, by token type"))
	if err != nil {
		return nil, err
	}
	rotations, err := meter.Int64Counter("auth.refresh.rotations",
		metric.WithDescription("Refresh-token rotation attempts, by outcome"))
	if err != nil {
		return nil, err
	}
	revocationChecks, err := meter.Int64Counter("auth.revocation.checks",
		metric.WithDescription("Revocation-registry lookups at the request gate"))
	if err != nil {
		return nil, err
	}
	gateDenials, err := meter.Int64Counter("auth.gate.denials",
		metric.WithDescription("Requests denied by the authorization gate, by reason"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		tokensIssued:     tokensIssued,
		rotations:        rotations,
		revocationChecks: revocationChecks,
		gateDenials:      gateDenials,
	}, nil
}

// TokenIssued counts one minted token of the given type ("access" or "refresh").
func (m *Metrics) TokenIssued(ctx context.Context, tokenType string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("token_type", tokenType)))
}

// Rotation counts one rotation attempt and its outcome.
func (m *Metrics) Rotation(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.rotations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}

// RevocationCheck counts one registry lookup at the gate.
func (m *Metrics) RevocationCheck(ctx context.Context) {
	if m == nil {
		return
	}
	m.revocationChecks.Add(ctx, 1)
}

// GateDenial counts one denied request with the given reason
// ("invalid_token", "revoked", "registry_unavailable").
func (m *Metrics) GateDenial(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.gateDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
