package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"quizdesk/internal/domain"
)

// UserService manages accounts. quizzes is needed so a teacher closing their
// account takes their quizzes along.
type UserService struct {
	users   UserRepository
	quizzes QuizRepository
	now     func() time.Time
	cost    int
}

func NewUserService(users UserRepository, quizzes QuizRepository, now func() time.Time) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, quizzes: quizzes, now: now, cost: bcrypt.DefaultCost}
}

// Register creates a student or teacher account. Admin accounts can only be
// created through CreateUser.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleStudent
	}
	if in.Role == domain.RoleAdmin {
		return domain.User{}, fmt.Errorf("%w: admin accounts cannot self-register", domain.ErrForbidden)
	}
	return s.CreateUser(ctx, in)
}

// CreateUser stores a new account of any role with a bcrypt password hash.
func (s *UserService) CreateUser(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, upstream("create user", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// Me returns the profile of the caller.
func (s *UserService) Me(ctx context.Context, caller Caller) (domain.User, error) {
	if caller.ID == "" {
		return domain.User{}, domain.ErrForbidden
	}
	user, err := s.users.GetUser(ctx, caller.ID)
	return user, upstream("get user", err)
}

// UpdateProfile changes the caller's name and email. Empty fields are left as
// they are.
func (s *UserService) UpdateProfile(ctx context.Context, caller Caller, in ProfileInput) (domain.User, error) {
	if caller.ID == "" {
		return domain.User{}, domain.ErrForbidden
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := check(in); err != nil {
		return domain.User{}, err
	}
	user, err := s.users.UpdateUser(ctx, caller.ID, func(u *domain.User) error {
		if in.Name != "" {
			u.Name = in.Name
		}
		if in.Email != "" {
			u.Email = in.Email
		}
		return nil
	})
	if err != nil {
		return domain.User{}, upstream("update user", err)
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, caller Caller, in PasswordInput) error {
	if caller.ID == "" {
		return domain.ErrForbidden
	}
	if err := check(in); err != nil {
		return err
	}
	hash, err := s.users.PasswordHash(ctx, caller.ID)
	if err != nil {
		return upstream("load password hash", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(in.CurrentPassword)) != nil {
		return domain.ErrInvalidCredentials
	}
	if in.NewPassword != in.ConfirmPassword {
		return fmt.Errorf("%w: new passwords do not match", domain.ErrValidation)
	}
	if len(in.NewPassword) < MinPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	next, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.users.UpdateUser(ctx, caller.ID, func(u *domain.User) error {
		// A concurrent change since the check wins.
		if u.PasswordHash != hash {
			return domain.ErrInvalidCredentials
		}
		u.PasswordHash = string(next)
		return nil
	})
	if err != nil {
		return upstream("update password", err)
	}
	log.Info().Str("userID", caller.ID).Msg("password changed")
	return nil
}

// DeleteAccount closes the caller's own account. A teacher's quizzes go with
// it; a student's submissions stay and resolve to an unknown name. Admins are
// removed by another admin only.
func (s *UserService) DeleteAccount(ctx context.Context, caller Caller) error {
	if caller.ID == "" {
		return domain.ErrForbidden
	}
	switch caller.Role {
	case domain.RoleStudent, domain.RoleTeacher:
	case domain.RoleAdmin:
		return fmt.Errorf("%w: admin accounts are removed by another admin", domain.ErrForbidden)
	default:
		return domain.ErrForbidden
	}
	removed := 0
	if caller.Role == domain.RoleTeacher {
		n, err := s.quizzes.DeleteQuizzesByCreator(ctx, caller.ID)
		if err != nil {
			return upstream("delete quizzes", err)
		}
		removed = n
	}
	if err := s.users.DeleteUser(ctx, caller.ID); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return upstream("delete user", err)
	}
	log.Info().Str("userID", caller.ID).Str("role", string(caller.Role)).Int("quizzes", removed).Msg("account deleted")
	return nil
}
