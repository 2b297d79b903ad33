package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"quizdesk/internal/domain"
)

// UserRepository keeps accounts in a map keyed by id with a unique email index.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	emails map[string]string
}

func NewUserRepository(seed ...domain.User) *UserRepository {
	r := &UserRepository{
		users:  make(map[string]domain.User),
		emails: make(map[string]string),
	}
	for _, u := range seed {
		r.users[u.ID] = u
		r.emails[strings.ToLower(u.Email)] = u.ID
	}
	return r
}

func (r *UserRepository) CreateUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := r.emails[key]; ok {
		return domain.ErrEmailTaken
	}
	r.users[user.ID] = user
	r.emails[key] = user.ID
	return nil
}

func (r *UserRepository) GetUser(_ context.Context, userID string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	user.PasswordHash = ""
	return user, nil
}

// PasswordHash returns the stored hash for id. It backs credential checks and
// is not part of the read path.
func (r *UserRepository) PasswordHash(_ context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	return user.PasswordHash, nil
}

// UpdateUser applies mutate to the stored account, hash included, under the
// write lock. The id and creation time cannot change.
func (r *UserRepository) UpdateUser(_ context.Context, userID string, mutate func(*domain.User) error) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	next := current
	if err := mutate(&next); err != nil {
		return domain.User{}, err
	}
	next.ID, next.CreatedAt = current.ID, current.CreatedAt
	oldKey, newKey := strings.ToLower(current.Email), strings.ToLower(next.Email)
	if newKey != oldKey {
		if _, taken := r.emails[newKey]; taken {
			return domain.User{}, domain.ErrEmailTaken
		}
		delete(r.emails, oldKey)
		r.emails[newKey] = userID
	}
	r.users[userID] = next
	next.PasswordHash = ""
	return next, nil
}

// FindUsers returns matching users, oldest first.
func (r *UserRepository) FindUsers(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var ids map[string]struct{}
	if len(filter.IDs) > 0 {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	r.mu.RLock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if ids != nil {
			if _, ok := ids[u.ID]; !ok {
				continue
			}
		}
		u.PasswordHash = ""
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *UserRepository) DeleteUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, userID)
	delete(r.emails, strings.ToLower(user.Email))
	return nil
}
