package handlers

import (
	"net/http"
	"time"

	"retail-service/internal/adapters/http/middleware"
	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/service/access"
	"retail-service/pkg/errors"
	"retail-service/pkg/server/response"
	"retail-service/pkg/timeutil"
)

// requestContext pulls the resolved principal and session tenant placed by
// the auth middleware.
func requestContext(w http.ResponseWriter, r *http.Request) (membership.Principal, tenant.Tenant, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, errors.ErrUnauthenticated)
		return membership.Principal{}, tenant.Tenant{}, false
	}
	sessionTenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.Error(w, r, errors.ErrUnauthenticated)
		return membership.Principal{}, tenant.Tenant{}, false
	}
	return principal, sessionTenant, true
}

// authorize consults the gate and writes the denial if any.
func authorize(w http.ResponseWriter, r *http.Request, p membership.Principal, action access.Action, t tenant.Tenant, branchID *string) bool {
	if err := access.Authorize(p, action, t, branchID, time.Now().UTC()); err != nil {
		response.Error(w, r, err)
		return false
	}
	return true
}

// dateRange parses from/to query dates (YYYY-MM-DD, inclusive), defaulting
// to the last 30 days.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -29)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := timeutil.ParseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.ErrInvalidArgument.WithMessage("from: must be YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := timeutil.ParseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.ErrInvalidArgument.WithMessage("to: must be YYYY-MM-DD")
		}
		to = parsed
	}
	return from, to, nil
}

// optionalQuery returns a pointer to the query value, nil when absent.
func optionalQuery(r *http.Request, name string) *string {
	if raw := r.URL.Query().Get(name); raw != "" {
		return &raw
	}
	return nil
}
