package interceptors

import (
	"context"
	"log"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"commerce-auth-core/internal/security"
	"commerce-auth-core/internal/telemetry"
)

const bearerPrefix = "bearer "

// RevocationChecker answers whether an access-token jti has been denylisted.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthUnary returns a unary server interceptor that validates the Bearer
// access token from gRPC metadata, checks its jti against the revocation
// registry, and sets the principal in context for protected RPCs.
//
// A registry lookup failure denies the request (fail closed): the registry is
// a security gate, and "store unreachable" must never read as "not revoked".
// publicMethods is the set of full method names that skip the gate.
// metrics may be nil.
func AuthUnary(issuer *security.TokenIssuer, registry RevocationChecker, metrics *telemetry.Metrics, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		token := extractBearer(ctx)
		if token == "" {
			metrics.GateDenial(ctx, "invalid_token")
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		claims, err := issuer.ValidateAccess(token)
		if err != nil {
			metrics.GateDenial(ctx, "invalid_token")
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		metrics.RevocationCheck(ctx)
		revoked, err := registry.IsRevoked(ctx, claims.ID)
		if err != nil {
			log.Printf("auth gate: revocation lookup failed for %s: %v", info.FullMethod, err)
			metrics.GateDenial(ctx, "registry_unavailable")
			return nil, status.Error(codes.Unavailable, "authorization unavailable")
		}
		if revoked {
			metrics.GateDenial(ctx, "revoked")
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		ctx = WithIdentity(ctx, claims.Subject, claims.TenantID, claims.SessionID, claims.ID)
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
