package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeExpireAds TaskType = "expire_ads"
	TaskTypePurgeAds  TaskType = "purge_ads"
)

const (
	DefaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	RetryDelay(base time.Duration) time.Duration
	Start()
	GetDuration() time.Duration
}

// Task is the state shared by sweep tasks. SweepAt is the trigger time the
// sweep evaluates against; it stays fixed across retries so a retried run
// selects the same ads.
type Task struct {
	ID         string
	Type       TaskType
	SweepAt    time.Time
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func NewTask(taskType TaskType, sweepAt time.Time) Task {
	return Task{
		ID:         string(taskType) + "-" + uuid.NewString(),
		Type:       taskType,
		SweepAt:    sweepAt,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) GetID() string { return t.ID }

func (t *Task) GetType() TaskType { return t.Type }

func (t *Task) GetRetryCount() int { return t.RetryCount }

func (t *Task) GetMaxRetries() int { return t.MaxRetries }

func (t *Task) IncrementRetryCount() { t.RetryCount++ }

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// RetryDelay doubles base for every retry already taken, capped at 30s.
func (t *Task) RetryDelay(base time.Duration) time.Duration {
	delay := base
	for i := 1; i < t.RetryCount && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

// Start marks the beginning of one attempt. Durations are per attempt.
func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}
