package httpx

import (
	"net/http"
	"strings"
)

// RequireRoles passes when the caller holds at least one of the required
// roles. Gates compose: chain several to require several role sets.
func RequireRoles(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, role := range required {
		want[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			have := NormalizeRoles(id.Roles)
			if len(have) == 0 {
				writeRoleError(w, "no roles assigned", required, have)
				return
			}

			for _, role := range have {
				if _, ok := want[role]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeRoleError(w, "insufficient permissions", required, have)
		})
	}
}

// RequireAllRoles passes only when the caller holds every listed role.
func RequireAllRoles(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			have := NormalizeRoles(id.Roles)
			haveSet := make(map[string]struct{}, len(have))
			for _, role := range have {
				haveSet[role] = struct{}{}
			}

			for _, role := range required {
				if _, ok := haveSet[role]; !ok {
					writeRoleError(w, "insufficient permissions", required, have)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NormalizeRoles turns any accepted role-set shape into a clean []string.
// Upstream components hand us either a proper list or a comma/space
// delimited header string; both normalize here and the string form never
// survives past this point.
func NormalizeRoles(v any) []string {
	switch roles := v.(type) {
	case nil:
		return nil
	case []string:
		return cleanRoles(roles)
	case string:
		return cleanRoles(strings.FieldsFunc(roles, func(r rune) bool {
			return r == ',' || r == ' '
		}))
	default:
		return nil
	}
}

func cleanRoles(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, role := range in {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// writeRoleError discloses the required and actual role sets. Role
// membership is not a secret; the disclosure makes permission failures
// diagnosable from the client side.
func writeRoleError(w http.ResponseWriter, msg string, required, current []string) {
	if current == nil {
		current = []string{}
	}
	WriteJSON(w, http.StatusForbidden, map[string]any{
		"error":    "FORBIDDEN",
		"message":  msg,
		"required": required,
		"current":  current,
	})
}
