package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jobdispatch-backend/utils"
	"jobdispatch-backend/utils/logger"

	"github.com/redis/go-redis/v9"
)

// Guarded actions
const (
	ActionAssign   = "assign"
	ActionClaim    = "claim"
	ActionUpdate   = "update"
	ActionComplete = "complete"
)

// ActionGuard allows one outstanding action of a kind per job. Acquire
// returns a conflict error while another holder is active.
type ActionGuard interface {
	Acquire(ctx context.Context, action, jobID string) (release func(), err error)
}

func guardKey(action, jobID string) string {
	return fmt.Sprintf("inflight:%s:%s", action, jobID)
}

func inFlightError(action, jobID string) error {
	return conflictError(nil, "another %s request for job %s is already in progress", action, jobID)
}

// LocalActionGuard is the in-process guard used without Redis
type LocalActionGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalActionGuard() *LocalActionGuard {
	return &LocalActionGuard{held: map[string]struct{}{}}
}

func (g *LocalActionGuard) Acquire(ctx context.Context, action, jobID string) (func(), error) {
	key := guardKey(action, jobID)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return nil, inFlightError(action, jobID)
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// GuardClient is the slice of the Redis client the guard needs
type GuardClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the key only if this holder still owns it
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

// RedisActionGuard shares the guard across API replicas. Keys expire after
// ttl so a crashed holder cannot block a job forever.
type RedisActionGuard struct {
	client GuardClient
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisActionGuard(client GuardClient, ttl time.Duration, log logger.Logger) *RedisActionGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisActionGuard{client: client, ttl: ttl, logger: log}
}

func (g *RedisActionGuard) Acquire(ctx context.Context, action, jobID string) (func(), error) {
	key := guardKey(action, jobID)
	token := utils.GenerateUUID()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		g.logger.Errorf("In-flight guard unavailable for %s: %v", key, err)
		return nil, transientError(err, "action guard unavailable, please retry")
	}
	if !ok {
		return nil, inFlightError(action, jobID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := g.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
				g.logger.Warnf("Failed to release %s, it will expire in %s: %v", key, g.ttl, err)
			}
		})
	}, nil
}
