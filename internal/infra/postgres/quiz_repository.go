// Package postgres stores quiz and user documents as JSONB rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizdesk/internal/domain"
)

const uniqueViolation = "23505"

// QuizRepository keeps each quiz, questions and submissions included, in the
// data column. id, code, created_by, is_published and created_at are copied
// out of the document for filtering and ordering.
type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO quizzes (id, code, created_by, is_published, created_at, data) VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		quiz.ID, quiz.Code, quiz.CreatedBy, quiz.IsPublished, quiz.CreatedAt, string(data))
	if isUniqueViolation(err) {
		return domain.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return scanQuiz(r.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id = $1`, quizID))
}

func (r *QuizRepository) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	return scanQuiz(r.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE code = $1`, code))
}

// FindQuizzes returns matching quizzes, newest first.
func (r *QuizRepository) FindQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		where = append(where, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if filter.PublishedOnly {
		where = append(where, "is_published")
	}
	if filter.StudentID != "" {
		containment, err := json.Marshal([]map[string]string{{"studentId": filter.StudentID}})
		if err != nil {
			return nil, fmt.Errorf("marshal student filter: %w", err)
		}
		args = append(args, string(containment))
		where = append(where, fmt.Sprintf("data->'submissions' @> $%d::jsonb", len(args)))
	}

	query := `SELECT data FROM quizzes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find quizzes: %w", err)
	}
	return quizzes, nil
}

// UpdateQuiz locks the row, applies mutate and writes the document back in
// the same transaction. A mutate error rolls the transaction back.
func (r *QuizRepository) UpdateQuiz(ctx context.Context, quizID string, mutate func(*domain.Quiz) error) (domain.Quiz, error) {
	var updated domain.Quiz
	err := r.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		quiz, err := scanQuiz(tx.QueryRow(ctx, `SELECT data FROM quizzes WHERE id = $1 FOR UPDATE`, quizID))
		if err != nil {
			return err
		}
		if err := mutate(&quiz); err != nil {
			return err
		}
		quiz.ID = quizID
		data, err := json.Marshal(quiz)
		if err != nil {
			return fmt.Errorf("marshal quiz: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE quizzes SET code = $2, is_published = $3, data = $4::jsonb WHERE id = $1`,
			quizID, quiz.Code, quiz.IsPublished, string(data))
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCode
		}
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		updated = quiz
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return updated, nil
}

func (r *QuizRepository) DeleteQuiz(ctx context.Context, quizID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (r *QuizRepository) DeleteQuizzesByCreator(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE created_by = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete quizzes: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
