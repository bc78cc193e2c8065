package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"retail-service/internal/domain/user"
	"retail-service/internal/infrastructure/store"
	"retail-service/pkg/errors"
)

type UserRepository struct {
	mu   sync.RWMutex
	rows map[string]user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{rows: make(map[string]user.User)}
}

func (r *UserRepository) Add(ctx context.Context, data user.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.Username == data.Username || existing.Email == data.Email {
			return "", errors.ErrConflict
		}
	}

	if data.ID == "" {
		data.ID = uuid.New().String()
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	r.rows[data.ID] = data
	return data.ID, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.rows[id]
	if !ok {
		return user.User{}, store.ErrorNotFound
	}
	return u, nil
}

func (r *UserRepository) GetByCredential(ctx context.Context, credential string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.rows {
		if u.Username == credential || u.Email == credential {
			return u, nil
		}
	}
	return user.User{}, store.ErrorNotFound
}

func (r *UserRepository) Update(ctx context.Context, id string, data user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}
	existing.FullName = data.FullName
	existing.Phone = data.Phone
	existing.IsActive = data.IsActive
	existing.UpdatedAt = time.Now().UTC()
	r.rows[id] = existing
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, loginTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return store.ErrorNotFound
	}
	existing.LastLoginAt = &loginTime
	r.rows[id] = existing
	return nil
}

func (r *UserRepository) CredentialExists(ctx context.Context, username, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.rows {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}
