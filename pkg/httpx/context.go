package httpx

import "context"

// Origin tags how an identity was established.
type Origin string

const (
	// OriginGateway means identity came from trusted upstream gateway headers.
	OriginGateway Origin = "gateway"
	// OriginLocalToken means identity came from a locally verified bearer token.
	OriginLocalToken Origin = "local-token"
)

// Identity is the normalized, request-scoped result of successful
// authentication. It lives only in the request context; nothing persists it.
type Identity struct {
	Subject  string
	Username string
	Roles    []string
	Origin   Origin
}

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyIdentity ctxKey = "identity"
)

// ContextWithIdentity attaches an authenticated identity for downstream
// handlers. The user id is stored separately for rate limiter key extraction.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, id.Subject)
	return context.WithValue(ctx, CtxKeyIdentity, id)
}

// IdentityFromContext returns the request identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(Identity)
	return id, ok
}
