package interceptors

import "context"

type contextKey struct{ name string }

var (
	userIDKey    = contextKey{"user_id"}
	tenantIDKey  = contextKey{"tenant_id"}
	sessionIDKey = contextKey{"session_id"}
	jtiKey       = contextKey{"jti"}
)

// WithIdentity returns a context carrying the authenticated principal.
// Handlers read it via GetUserID, GetTenantID, GetSessionID, GetJti.
func WithIdentity(ctx context.Context, userID, tenantID, sessionID, jti string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, tenantIDKey, tenantID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	ctx = context.WithValue(ctx, jtiKey, jti)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetTenantID returns the tenant_id from context and true if set; otherwise "", false.
func GetTenantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tenantIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// GetJti returns the access-token jti from context and true if set; otherwise "", false.
func GetJti(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(jtiKey).(string)
	return v, ok
}
