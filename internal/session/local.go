package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/p-n-ai/pai-learn/internal/storage"
)

const (
	quizStateKeyPrefix = "lp.lesson.quizState."
	quizLockKeyPrefix  = "lp.lesson.quizLocked."

	defaultLocalTimeout = 2 * time.Second
)

// QuizStateKey is the local persistence key of a lesson's quiz answers.
func QuizStateKey(lessonID string) string { return quizStateKeyPrefix + lessonID }

// AnswersLockedKey is the local persistence key of a lesson's answer lock flag.
func AnswersLockedKey(lessonID string) string { return quizLockKeyPrefix + lessonID }

// LocalStore caches quiz answers and the lock flag per lesson. Implementations
// never fail: unavailable storage reads as absent and drops writes.
type LocalStore interface {
	LoadQuizState(ctx context.Context, lessonID string) (QuizState, bool)
	SaveQuizState(ctx context.Context, lessonID string, quiz QuizState)
	LoadAnswersLocked(ctx context.Context, lessonID string) (bool, bool)
	SaveAnswersLocked(ctx context.Context, lessonID string, locked bool)
}

// LocalCache is a LocalStore over any storage.KV. Values are JSON for the quiz
// map and "true"/"false" for the lock flag.
type LocalCache struct {
	kv      storage.KV
	logger  *slog.Logger
	timeout time.Duration
}

// NewLocalCache wraps kv. A nil logger uses slog.Default().
func NewLocalCache(kv storage.KV, logger *slog.Logger) *LocalCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalCache{kv: kv, logger: logger, timeout: defaultLocalTimeout}
}

func (c *LocalCache) LoadQuizState(ctx context.Context, lessonID string) (QuizState, bool) {
	raw, ok := c.get(ctx, QuizStateKey(lessonID))
	if !ok {
		return nil, false
	}
	var quiz QuizState
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil || quiz == nil {
		c.logger.Warn("ignoring unreadable quiz state", "lesson_id", lessonID, "error", err)
		return nil, false
	}
	return quiz, true
}

func (c *LocalCache) SaveQuizState(ctx context.Context, lessonID string, quiz QuizState) {
	if quiz == nil {
		quiz = QuizState{}
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		c.logger.Warn("encode quiz state failed", "lesson_id", lessonID, "error", err)
		return
	}
	c.set(ctx, QuizStateKey(lessonID), string(data))
}

func (c *LocalCache) LoadAnswersLocked(ctx context.Context, lessonID string) (bool, bool) {
	raw, ok := c.get(ctx, AnswersLockedKey(lessonID))
	if !ok {
		return false, false
	}
	locked, err := strconv.ParseBool(raw)
	if err != nil {
		c.logger.Warn("ignoring unreadable answer lock", "lesson_id", lessonID, "value", raw)
		return false, false
	}
	return locked, true
}

func (c *LocalCache) SaveAnswersLocked(ctx context.Context, lessonID string, locked bool) {
	c.set(ctx, AnswersLockedKey(lessonID), strconv.FormatBool(locked))
}

func (c *LocalCache) get(ctx context.Context, key string) (string, bool) {
	if c == nil || c.kv == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("local storage read failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (c *LocalCache) set(ctx context.Context, key, value string) {
	if c == nil || c.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.kv.Set(ctx, key, value); err != nil {
		c.logger.Warn("local storage write failed", "key", key, "error", err)
	}
}
