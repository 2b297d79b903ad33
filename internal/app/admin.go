package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"quizdesk/internal/analytics"
	"quizdesk/internal/domain"
)

// AdminService exposes platform-wide listings and account removal.
type AdminService struct {
	quizzes QuizRepository
	users   UserRepository
	loader  *DashboardService
}

func NewAdminService(quizzes QuizRepository, users UserRepository) *AdminService {
	return &AdminService{
		quizzes: quizzes,
		users:   users,
		loader:  NewDashboardService(quizzes, users, 0, nil),
	}
}

// Quizzes lists every quiz.
func (a *AdminService) Quizzes(ctx context.Context, caller Caller) ([]domain.Quiz, error) {
	if err := caller.require(domain.RoleAdmin); err != nil {
		return nil, err
	}
	quizzes, err := a.quizzes.FindQuizzes(ctx, domain.QuizFilter{})
	return quizzes, upstream("find quizzes", err)
}

// Students lists every student with their weighted average score.
func (a *AdminService) Students(ctx context.Context, caller Caller) ([]analytics.StudentStat, error) {
	if err := caller.require(domain.RoleAdmin); err != nil {
		return nil, err
	}
	snap, err := a.loader.load(ctx, domain.QuizFilter{}, domain.UserFilter{Role: domain.RoleStudent})
	if err != nil {
		return nil, err
	}
	return analytics.StudentStats(snap.users, analytics.Attempts(snap.quizzes)), nil
}

// Teachers lists every teacher with the quizzes they created.
func (a *AdminService) Teachers(ctx context.Context, caller Caller) ([]analytics.TeacherStat, error) {
	if err := caller.require(domain.RoleAdmin); err != nil {
		return nil, err
	}
	snap, err := a.loader.load(ctx, domain.QuizFilter{}, domain.UserFilter{Role: domain.RoleTeacher})
	if err != nil {
		return nil, err
	}
	return analytics.TeacherStats(snap.users, snap.quizzes), nil
}

// DeleteUser removes an account. Submissions of a deleted student stay in
// their quizzes and resolve to an unknown name.
func (a *AdminService) DeleteUser(ctx context.Context, caller Caller, userID string) error {
	if err := caller.require(domain.RoleAdmin); err != nil {
		return err
	}
	if userID == caller.ID {
		return fmt.Errorf("%w: admins cannot delete themselves", domain.ErrForbidden)
	}
	if err := a.users.DeleteUser(ctx, userID); err != nil {
		return upstream("delete user", err)
	}
	log.Info().Str("userID", userID).Str("adminID", caller.ID).Msg("user deleted")
	return nil
}

// DeleteTeacher removes a teacher together with every quiz they created and
// returns how many quizzes went with them.
func (a *AdminService) DeleteTeacher(ctx context.Context, caller Caller, teacherID string) (int, error) {
	if err := caller.require(domain.RoleAdmin); err != nil {
		return 0, err
	}
	teacher, err := a.users.GetUser(ctx, teacherID)
	if err != nil {
		return 0, upstream("get user", err)
	}
	if teacher.Role != domain.RoleTeacher {
		return 0, fmt.Errorf("%w: user %s is not a teacher", domain.ErrValidation, teacherID)
	}
	removed, err := a.quizzes.DeleteQuizzesByCreator(ctx, teacherID)
	if err != nil {
		return 0, upstream("delete quizzes", err)
	}
	if err := a.users.DeleteUser(ctx, teacherID); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return removed, upstream("delete user", err)
	}
	log.Info().Str("teacherID", teacherID).Int("quizzes", removed).Msg("teacher deleted with quizzes")
	return removed, nil
}
