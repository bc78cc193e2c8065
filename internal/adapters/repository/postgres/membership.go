package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"retail-service/internal/domain/membership"
	"retail-service/internal/infrastructure/store"
)

const membershipColumns = `id, user_id, tenant_id, role, branch_id, is_owner, is_active, joined_at, updated_at`

type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository creates a new instance of MembershipRepository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Add inserts a new membership into the store.
func (r *MembershipRepository) Add(ctx context.Context, data membership.Membership) (string, error) {
	query := `
		INSERT INTO memberships (user_id, tenant_id, role, branch_id, is_owner, is_active, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, CURRENT_TIMESTAMP), CURRENT_TIMESTAMP)
		RETURNING id`

	args := []interface{}{
		data.UserID,
		data.TenantID,
		data.Role,
		data.BranchID,
		data.IsOwner,
		data.IsActive,
		nullableTime(data.JoinedAt),
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", HandleSQLError(err)
	}
	return id, nil
}

// Get retrieves a membership by ID from the store.
func (r *MembershipRepository) Get(ctx context.Context, id string) (membership.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id=$1`

	var m membership.Membership
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, store.ErrorNotFound
		}
		return m, err
	}
	return m, nil
}

// GetByUserAndTenant retrieves the membership linking a user to a tenant.
func (r *MembershipRepository) GetByUserAndTenant(ctx context.Context, userID, tenantID string) (membership.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id=$1 AND tenant_id=$2`

	var m membership.Membership
	if err := r.db.GetContext(ctx, &m, query, userID, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, store.ErrorNotFound
		}
		return m, err
	}
	return m, nil
}

// ListByTenant retrieves all memberships of a tenant.
func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID string) ([]membership.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE tenant_id=$1 ORDER BY joined_at`

	memberships := []membership.Membership{}
	if err := r.db.SelectContext(ctx, &memberships, query, tenantID); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListByUser retrieves all memberships a user holds.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]membership.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id=$1 ORDER BY joined_at`

	memberships := []membership.Membership{}
	if err := r.db.SelectContext(ctx, &memberships, query, userID); err != nil {
		return nil, err
	}
	return memberships, nil
}

// Update modifies role, branch pin, and active flag.
func (r *MembershipRepository) Update(ctx context.Context, id string, data membership.Membership) error {
	query := `
		UPDATE memberships
		SET role=$1, branch_id=$2, is_active=$3, updated_at=CURRENT_TIMESTAMP
		WHERE id=$4
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, data.Role, data.BranchID, data.IsActive, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// Deactivate soft-removes a membership.
func (r *MembershipRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE memberships
		SET is_active=FALSE, updated_at=CURRENT_TIMESTAMP
		WHERE id=$1
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// CountByTenant returns the number of active memberships in a tenant.
func (r *MembershipRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM memberships WHERE tenant_id=$1 AND is_active`
	if err := r.db.GetContext(ctx, &count, query, tenantID); err != nil {
		return 0, err
	}
	return count, nil
}
