package arena

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PendingTask is the single outstanding arithmetic challenge for one
// participant in one match. It lives only in the task store; losing it
// costs the player a regeneration, nothing else.
type PendingTask struct {
	TaskID  uuid.UUID `json:"task_id"`
	A       int       `json:"a"`
	B       int       `json:"b"`
	Op      string    `json:"op"`
	Correct int       `json:"correct"`
}

// newPendingTask draws operands uniformly from [1,20] and picks "+" with
// probability 0.7, "-" otherwise. Negative results are allowed.
func newPendingTask() PendingTask {
	a := rand.IntN(20) + 1
	b := rand.IntN(20) + 1
	op := "+"
	correct := a + b
	if rand.Float64() >= 0.7 {
		op = "-"
		correct = a - b
	}
	return PendingTask{
		TaskID:  uuid.New(),
		A:       a,
		B:       b,
		Op:      op,
		Correct: correct,
	}
}

// TaskStore keeps at most one outstanding task per (match, participant).
type TaskStore interface {
	// GetOrCreate returns the outstanding task, generating one only when
	// none exists. Repeated calls without a correct answer in between
	// return the same task.
	GetOrCreate(ctx context.Context, matchID, userID uuid.UUID) (PendingTask, error)

	// Outstanding returns the current task or nil.
	Outstanding(ctx context.Context, matchID, userID uuid.UUID) (*PendingTask, error)

	// Clear discards the outstanding task so the next GetOrCreate
	// generates a fresh one.
	Clear(ctx context.Context, matchID, userID uuid.UUID) error
}

// RedisTaskStore implements TaskStore on Redis, keyed by match and user.
// Entries are TTL-bound and cleared on correct answers and at settlement.
type RedisTaskStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisTaskStore creates a task store with the given entry TTL.
func NewRedisTaskStore(client *redis.Client, ttl time.Duration) *RedisTaskStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisTaskStore{redis: client, ttl: ttl}
}

func taskKey(matchID, userID uuid.UUID) string {
	return fmt.Sprintf("battle:task:%s:%s", matchID, userID)
}

// GetOrCreate returns the stored task, or generates one and claims the key
// with SETNX so two concurrent requests agree on a single task.
func (s *RedisTaskStore) GetOrCreate(ctx context.Context, matchID, userID uuid.UUID) (PendingTask, error) {
	key := taskKey(matchID, userID)

	if task, err := s.get(ctx, key); err != nil {
		return PendingTask{}, err
	} else if task != nil {
		return *task, nil
	}

	task := newPendingTask()
	data, err := json.Marshal(task)
	if err != nil {
		return PendingTask{}, fmt.Errorf("marshal task: %w", err)
	}

	claimed, err := s.redis.SetNX(ctx, key, data, s.ttl).Result()
	if err != nil {
		return PendingTask{}, fmt.Errorf("store task: %w", err)
	}
	if !claimed {
		// Lost the race; the winner's task is authoritative.
		existing, err := s.get(ctx, key)
		if err != nil {
			return PendingTask{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}
	return task, nil
}

// Outstanding returns the current task without generating a new one.
func (s *RedisTaskStore) Outstanding(ctx context.Context, matchID, userID uuid.UUID) (*PendingTask, error) {
	return s.get(ctx, taskKey(matchID, userID))
}

// Clear discards the outstanding task.
func (s *RedisTaskStore) Clear(ctx context.Context, matchID, userID uuid.UUID) error {
	return s.redis.Del(ctx, taskKey(matchID, userID)).Err()
}

func (s *RedisTaskStore) get(ctx context.Context, key string) (*PendingTask, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	var task PendingTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}
