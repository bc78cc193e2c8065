// Package identity resolves (credential, subdomain) pairs into principals
// bound to exactly one tenant, and enforces the tenant-switch rules.
package identity

import (
	"net/http"
	"time"

	"retail-service/internal/domain/membership"
	"retail-service/internal/domain/tenant"
	"retail-service/internal/domain/user"
	"retail-service/internal/infrastructure/auth"
	"retail-service/pkg/errors"
)

// Identity failure sentinels. An unknown tenant (subdomains are public) and
// an inactive tenant, user or membership are reported as themselves; every
// other identity failure collapses into the opaque invalid-credentials shape.
var (
	ErrUnknownTenant = errors.New("UNKNOWN_TENANT", "unknown tenant", http.StatusNotFound)
	ErrInactive      = errors.New("INACTIVE", "account is inactive", http.StatusForbidden)
)

// Session is the outcome of a successful authentication or tenant switch.
type Session struct {
	Token     string          `json:"session_token"`
	ExpiresIn int64           `json:"expires_in"`
	Tenant    tenant.Response `json:"tenant"`
	User      UserContext     `json:"user"`
}

// UserContext is the caller's identity within the session tenant.
type UserContext struct {
	ID             string              `json:"id"`
	FullName       string              `json:"full_name"`
	RoleType       membership.RoleType `json:"role_type"`
	PinnedBranchID *string             `json:"pinned_branch_id,omitempty"`
}

// Defaults seed new organizations with platform-level business settings.
type Defaults struct {
	Currency        string
	TaxRate         string
	Timezone        string
	TrialPeriodDays int
}

// Service implements authentication, principal resolution, and tenant
// switching.
type Service struct {
	users       user.Repository
	tenants     tenant.Repository
	memberships membership.Repository
	jwt         *auth.JWTService
	defaults    Defaults
}

func New(
	users user.Repository,
	tenants tenant.Repository,
	memberships membership.Repository,
	jwt *auth.JWTService,
	defaults Defaults,
) *Service {
	return &Service{
		users:       users,
		tenants:     tenants,
		memberships: memberships,
		jwt:         jwt,
		defaults:    defaults,
	}
}

func (s *Service) session(userData user.User, t tenant.Tenant, p membership.Principal) (Session, error) {
	token, err := s.jwt.GenerateSessionToken(userData.ID, t.ID)
	if err != nil {
		return Session{}, errors.ErrInternal.Wrap(err)
	}

	return Session{
		Token:     token,
		ExpiresIn: s.jwt.TokenTTL(),
		Tenant:    tenant.ParseFromEntity(t),
		User: UserContext{
			ID:             userData.ID,
			FullName:       userData.FullName,
			RoleType:       p.RoleType,
			PinnedBranchID: p.PinnedBranchID,
		},
	}, nil
}

// now is separated for tests.
func (s *Service) now() time.Time {
	return time.Now().UTC()
}
