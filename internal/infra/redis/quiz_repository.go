// Package redis caches quiz documents in front of the primary store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/monitoring"
)

// QuizRepository is a read-through cache over another app.QuizRepository.
// Quizzes are stored as JSON under quiz:{id}; quiz:code:{code} maps a join code
// to an id. Every write goes to the backend first, then bumps quiz:gen:{id} and
// drops the keys. A reader only fills the cache when the generation it saw
// before loading from the backend is still current.
type QuizRepository struct {
	client  *redis.Client
	backend app.QuizRepository
	ttl     time.Duration
	sf      singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, backend app.QuizRepository, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client:  client,
		backend: backend,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func quizKey(quizID string) string {
	return "quiz:" + quizID
}

func codeKey(code string) string {
	return "quiz:code:" + code
}

func genKey(quizID string) string {
	return "quiz:gen:" + quizID
}

// genTTL outlives any in-flight backend read so a bumped generation is still
// visible when a slow reader tries to store.
const genTTL = 24 * time.Hour

var errStaleRead = errors.New("quiz changed while loading")

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}
	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}
		gen, genErr := r.generation(ctx, quizID)
		quiz, err := r.backend.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if genErr == nil {
			r.store(ctx, quiz, gen)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	id, err := r.client.Get(ctx, codeKey(code)).Result()
	if err == nil {
		if quiz, err := r.GetQuiz(ctx, id); err == nil && quiz.Code == code {
			return quiz, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("code", code).Msg("quiz cache unavailable")
	}

	// Only the mapping is written here. The document itself is cached by the
	// next GetQuiz, which reads the generation first.
	result, err, _ := r.sf.Do("code:"+code, func() (interface{}, error) {
		quiz, err := r.backend.GetQuizByCode(ctx, code)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := r.client.Set(ctx, codeKey(code), quiz.ID, r.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("quiz cache write failed")
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// FindQuizzes is never cached; dashboards always read the backend.
func (r *QuizRepository) FindQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	return r.backend.FindQuizzes(ctx, filter)
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := r.backend.CreateQuiz(ctx, quiz); err != nil {
		return err
	}
	r.invalidate(ctx, quiz.ID, quiz.Code)
	return nil
}

func (r *QuizRepository) UpdateQuiz(ctx context.Context, quizID string, mutate func(*domain.Quiz) error) (domain.Quiz, error) {
	quiz, err := r.backend.UpdateQuiz(ctx, quizID, mutate)
	if err != nil {
		return domain.Quiz{}, err
	}
	r.invalidate(ctx, quiz.ID, quiz.Code)
	return quiz, nil
}

func (r *QuizRepository) DeleteQuiz(ctx context.Context, quizID string) error {
	if err := r.backend.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	r.invalidate(ctx, quizID, "")
	return nil
}

func (r *QuizRepository) DeleteQuizzesByCreator(ctx context.Context, userID string) (int, error) {
	owned, err := r.backend.FindQuizzes(ctx, domain.QuizFilter{CreatedBy: userID})
	if err != nil {
		return 0, err
	}
	removed, err := r.backend.DeleteQuizzesByCreator(ctx, userID)
	if err != nil {
		return removed, err
	}
	for _, q := range owned {
		r.invalidate(ctx, q.ID, q.Code)
	}
	return removed, nil
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("quizID", quizID).Msg("quiz cache unavailable")
		}
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
		return domain.Quiz{}, false
	}
	monitoring.CacheLookups.WithLabelValues("hit").Inc()
	return quiz, true
}

// generation returns the current write generation of a quiz, 0 when unset.
func (r *QuizRepository) generation(ctx context.Context, quizID string) (int64, error) {
	gen, err := r.client.Get(ctx, genKey(quizID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// store caches quiz unless a write bumped its generation after gen was read.
func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz, gen int64) {
	data, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	ttl := r.ttlWithJitter()
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(quiz.ID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, quizKey(quiz.ID), data, ttl)
			if quiz.Code != "" {
				pipe.Set(ctx, codeKey(quiz.Code), quiz.ID, ttl)
			}
			return nil
		})
		return err
	}, genKey(quiz.ID))
	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		log.Debug().Str("quizID", quiz.ID).Msg("skipped caching stale quiz")
	default:
		log.Warn().Err(err).Str("quizID", quiz.ID).Msg("quiz cache write failed")
	}
}

func (r *QuizRepository) invalidate(ctx context.Context, quizID, code string) {
	keys := []string{quizKey(quizID)}
	if code != "" {
		keys = append(keys, codeKey(code))
	}
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, genKey(quizID))
	pipe.Expire(ctx, genKey(quizID), genTTL)
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("quizID", quizID).Msg("quiz cache invalidation failed")
	}
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
