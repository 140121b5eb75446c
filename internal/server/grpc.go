// Package server assembles the gRPC server for the auth core: the
// authorization gate interceptor and the standard health service. Business
// RPC surfaces (sign-up, sign-in orchestration) are registered by callers.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"commerce-auth-core/internal/security"
	"commerce-auth-core/internal/server/interceptors"
	"commerce-auth-core/internal/telemetry"
)

// Deps holds the dependencies the server shell wires into interceptors.
type Deps struct {
	// Issuer verifies access tokens at the gate.
	Issuer *security.TokenIssuer
	// Registry answers revocation-membership queries at the gate.
	Registry interceptors.RevocationChecker
	// Metrics may be nil; the gate then runs unmetered.
	Metrics *telemetry.Metrics
	// PublicMethods are full method names that skip the authorization gate.
	PublicMethods map[string]bool
}

// New builds the gRPC server with the otelgrpc stats handler, the
// authorization gate, and a registered health service.
func New(deps Deps) *grpc.Server {
	public := deps.PublicMethods
	if public == nil {
		public = map[string]bool{}
	}
	// Health checks never carry tokens.
	public[healthpb.Health_Check_FullMethodName] = true
	public[healthpb.Health_Watch_FullMethodName] = true

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Issuer, deps.Registry, deps.Metrics, public),
		),
	)

	healthpb.RegisterHealthServer(s, health.NewServer())
	return s
}
