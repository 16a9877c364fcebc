package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/trackcrate/trackcrate/pkg/jwtx"
	"github.com/trackcrate/trackcrate/pkg/slogx"
)

// Gateway trust headers. The upstream gateway authenticates callers at the
// network boundary, strips these headers from all direct client traffic, and
// asserts them itself. Their presence is therefore proof of gateway transit.
const (
	HeaderGatewayAuth     = "X-Gateway-Auth"
	HeaderGatewaySubject  = "X-Gateway-User-Id"
	HeaderGatewayUsername = "X-Gateway-Username"
	HeaderGatewayRoles    = "X-Gateway-Roles"
)

// RevocationChecker answers whether a cryptographically valid access token
// has been revoked early. Implementations consult the credential store; an
// error fails authentication closed.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti, subject string, issuedAt time.Time) (bool, error)
}

// Authenticator is the per-request authentication decision procedure. It runs
// an ordered list of checks; each check either terminates the request (pass
// or reject) or hands over to the next one. Order is load-bearing: the
// gateway trust path always precedes bearer verification, so a request
// carrying valid gateway headers never reaches the local token path.
type Authenticator struct {
	Verifier    jwtx.Verifier
	Revocations RevocationChecker // nil skips the ledger lookup

	// VersionPrefix is the required API path prefix, e.g. "/v1/".
	VersionPrefix string

	// OpenPaths pass without any credential. An entry ending in "/" is a
	// prefix match; anything else must match exactly.
	OpenPaths []string
}

// authDecision is the outcome of a single check.
type authDecision struct {
	next     bool      // continue with the following check
	identity *Identity // attach on pass; nil passes anonymously
	status   int       // non-zero rejects with this HTTP status
	code     string
	message  string
}

func passAnonymous() authDecision             { return authDecision{} }
func passWith(id Identity) authDecision       { return authDecision{identity: &id} }
func checkNext() authDecision                 { return authDecision{next: true} }
func reject(status int, code, msg string) authDecision {
	return authDecision{status: status, code: code, message: msg}
}

// Middleware returns the authentication middleware for this configuration.
func (a *Authenticator) Middleware() Middleware {
	checks := []func(*http.Request) authDecision{
		a.checkOpenPath,
		a.checkVersion,
		a.checkGateway,
		a.checkBearer,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, check := range checks {
				decision := check(r)
				if decision.next {
					continue
				}

				if decision.status != 0 {
					writeAuthError(w, decision.status, decision.code, decision.message)
					return
				}

				if decision.identity != nil {
					ctx := ContextWithIdentity(r.Context(), *decision.identity)
					r = r.WithContext(ctx)
				}
				next.ServeHTTP(w, r)
				return
			}

			// The check list always terminates in checkBearer; reaching here
			// means a check was misconfigured. Fail closed.
			writeAuthError(w, http.StatusInternalServerError, "SERVER_ERROR", "authentication misconfigured")
		})
	}
}

func (a *Authenticator) checkOpenPath(r *http.Request) authDecision {
	path := r.URL.Path
	for _, open := range a.OpenPaths {
		if strings.HasSuffix(open, "/") {
			if strings.HasPrefix(path, open) {
				return passAnonymous()
			}
			continue
		}
		if path == open {
			return passAnonymous()
		}
	}
	return checkNext()
}

func (a *Authenticator) checkVersion(r *http.Request) authDecision {
	if a.VersionPrefix != "" && !strings.HasPrefix(r.URL.Path, a.VersionPrefix) {
		// A caller error, not an authentication failure.
		return reject(http.StatusBadRequest, "UNSUPPORTED_API_VERSION", "request path is missing the API version prefix")
	}
	return checkNext()
}

func (a *Authenticator) checkGateway(r *http.Request) authDecision {
	if r.Header.Get(HeaderGatewayAuth) != "true" {
		return checkNext()
	}

	subject := strings.TrimSpace(r.Header.Get(HeaderGatewaySubject))
	if subject == "" {
		// Marker without a subject is not a usable assertion.
		return checkNext()
	}

	username := strings.TrimSpace(r.Header.Get(HeaderGatewayUsername))
	if username == "" {
		username = subject
	}

	roles := NormalizeRoles(r.Header.Get(HeaderGatewayRoles))
	if roles == nil {
		roles = []string{} // gateway identities never carry a nil role set
	}

	return passWith(Identity{
		Subject:  subject,
		Username: username,
		Roles:    roles,
		Origin:   OriginGateway,
	})
}

func (a *Authenticator) checkBearer(r *http.Request) authDecision {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return reject(http.StatusUnauthorized, "UNAUTHORIZED", "missing credential")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

	claims, err := a.Verifier.Verify(raw)
	if err != nil {
		log.Warn("jwt verify failed", "err", err)
		return reject(http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
	}

	if a.Revocations != nil {
		issuedAt := time.Time{}
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}

		revoked, err := a.Revocations.IsRevoked(ctx, claims.ID, claims.Subject, issuedAt)
		if err != nil {
			// Store outage fails closed; failing open would defeat revocation.
			log.Error("revocation check failed", "err", err)
			return reject(http.StatusInternalServerError, "SERVER_ERROR", "unable to verify credential")
		}
		if revoked {
			// Indistinguishable from expiry so revocation state never leaks.
			return reject(http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
		}
	}

	return passWith(Identity{
		Subject:  claims.Subject,
		Username: claims.Username,
		Roles:    claims.Roles,
		Origin:   OriginLocalToken,
	})
}

// writeAuthError writes an RFC 6750-style rejection with a JSON body.
func writeAuthError(w http.ResponseWriter, status int, code, msg string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+msg+`"`)
	}
	WriteJSON(w, status, map[string]string{
		"error":   code,
		"message": msg,
	})
}
