package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"retail-service/internal/domain/user"
	"retail-service/internal/infrastructure/store"
)

type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Add inserts a new user into the store.
func (r *UserRepository) Add(ctx context.Context, data user.User) (string, error) {
	query := `
		INSERT INTO users (username, email, password_hash, full_name, phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, CURRENT_TIMESTAMP), COALESCE($8, CURRENT_TIMESTAMP))
		RETURNING id`

	args := []interface{}{
		data.Username,
		data.Email,
		data.PasswordHash,
		data.FullName,
		data.Phone,
		data.IsActive,
		nullableTime(data.CreatedAt),
		nullableTime(data.UpdatedAt),
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", HandleSQLError(err)
	}
	return id, nil
}

// Get retrieves a user by ID from the store.
func (r *UserRepository) Get(ctx context.Context, id string) (user.User, error) {
	query := `
		SELECT id, username, email, password_hash, full_name, phone, is_active, created_at, updated_at, last_login_at
		FROM users
		WHERE id=$1`

	var u user.User
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, store.ErrorNotFound
		}
		return u, err
	}
	return u, nil
}

// GetByCredential retrieves a user by username or email.
func (r *UserRepository) GetByCredential(ctx context.Context, credential string) (user.User, error) {
	query := `
		SELECT id, username, email, password_hash, full_name, phone, is_active, created_at, updated_at, last_login_at
		FROM users
		WHERE username=$1 OR email=$1`

	var u user.User
	if err := r.db.GetContext(ctx, &u, query, credential); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, store.ErrorNotFound
		}
		return u, err
	}
	return u, nil
}

// Update modifies profile fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, id string, data user.User) error {
	query := `
		UPDATE users
		SET full_name=$1, phone=$2, is_active=$3, updated_at=CURRENT_TIMESTAMP
		WHERE id=$4
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, data.FullName, data.Phone, data.IsActive, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// UpdateLastLogin records a successful authentication.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, loginTime time.Time) error {
	query := `
		UPDATE users
		SET last_login_at=$1, updated_at=CURRENT_TIMESTAMP
		WHERE id=$2
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, loginTime, id).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrorNotFound
		}
		return err
	}
	return nil
}

// CredentialExists checks whether a username or email is taken.
func (r *UserRepository) CredentialExists(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1 OR email=$2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username, email); err != nil {
		return false, err
	}
	return exists, nil
}
