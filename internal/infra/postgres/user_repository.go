package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizdesk/internal/domain"
)

// UserRepository keeps user profiles in the data column. The password hash
// lives in its own column and is only read by PasswordHash.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateUser(ctx context.Context, user domain.User) error {
	user.Email = strings.ToLower(user.Email)
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO users (id, email, role, password_hash, created_at, data) VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		user.ID, user.Email, string(user.Role), user.PasswordHash, user.CreatedAt, string(data))
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT data FROM users WHERE id = $1`, userID))
}

// PasswordHash returns the stored bcrypt hash of a user.
func (r *UserRepository) PasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load password hash: %w", err)
	}
	return hash, nil
}

// UpdateUser locks the row, applies mutate and writes the result back in one
// transaction. mutate sees the stored password hash.
func (r *UserRepository) UpdateUser(ctx context.Context, userID string, mutate func(*domain.User) error) (domain.User, error) {
	var updated domain.User
	err := r.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var (
			raw  []byte
			hash string
		)
		err := tx.QueryRow(ctx, `SELECT data, password_hash FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&raw, &hash)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		var current domain.User
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		current.PasswordHash = hash

		next := current
		if err := mutate(&next); err != nil {
			return err
		}
		next.ID, next.CreatedAt = current.ID, current.CreatedAt
		next.Email = strings.ToLower(next.Email)
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE users SET email = $2, role = $3, password_hash = $4, data = $5::jsonb WHERE id = $1`,
			userID, next.Email, string(next.Role), next.PasswordHash, string(data))
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	updated.PasswordHash = ""
	return updated, nil
}

// FindUsers returns matching users, oldest first.
func (r *UserRepository) FindUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	query := `SELECT data FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return user, nil
}
