package rbac

import (
	"net/http"
	"strings"

	"github.com/stocklane-erp/stocklane/internal/platform/httpx"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Gate authorizes requests against the permission snapshot carried by the
// request identity. It is a pure function of the identity and the required
// set: no database access, no state between calls.
type Gate struct{}

// Require ensures the identity carries every listed permission. A missing
// identity yields 401; missing permissions yield 403 naming each one, so
// legitimate clients can tell what grant they lack.
func (Gate) Require(perms ...string) func(http.Handler) http.Handler {
	required := dedupe(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				httpx.Unauthorized(w)
				return
			}
			missing := missingPermissions(identity.Permissions, required)
			if len(missing) > 0 {
				httpx.Problem(w, http.StatusForbidden, "Forbidden",
					"missing permission(s): "+strings.Join(missing, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the identity carries at least one of the listed
// permissions.
func (Gate) RequireAny(perms ...string) func(http.Handler) http.Handler {
	required := dedupe(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				httpx.Unauthorized(w)
				return
			}
			if len(required) == 0 || len(missingPermissions(identity.Permissions, required)) < len(required) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden",
				"missing permission(s): "+strings.Join(required, ", "))
		})
	}
}

func dedupe(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func missingPermissions(granted, required []string) []string {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	var missing []string
	for _, p := range required {
		if _, ok := set[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}
