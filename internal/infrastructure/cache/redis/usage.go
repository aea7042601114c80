package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

const (
	DefaultFreeDailyLimit = 5
	usageKeyTTL           = 48 * time.Hour
)

// UsageLimiter counts searches per user and UTC day. Users on the pro list are
// never limited and report a Limit of 0.
type UsageLimiter struct {
	client    commander
	freeLimit int
	proUsers  map[string]struct{}
	now       func() time.Time
}

func NewUsageLimiter(client commander, freeLimit int, proUsers []string) *UsageLimiter {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeDailyLimit
	}
	pro := make(map[string]struct{}, len(proUsers))
	for _, id := range proUsers {
		if id != "" {
			pro[id] = struct{}{}
		}
	}
	return &UsageLimiter{
		client:    client,
		freeLimit: freeLimit,
		proUsers:  pro,
		now:       time.Now,
	}
}

func (l *UsageLimiter) Status(ctx context.Context, userID string) (domain.Usage, error) {
	count, err := l.count(ctx, userID)
	if err != nil {
		return domain.Usage{}, err
	}

	if _, ok := l.proUsers[userID]; ok {
		return domain.Usage{SearchCount: count, PlanType: domain.PlanPro}, nil
	}
	return domain.Usage{
		SearchCount:     count,
		PlanType:        domain.PlanFree,
		Limit:           l.freeLimit,
		HasReachedLimit: count >= l.freeLimit,
	}, nil
}

// Increment bumps today's counter. INCR and EXPIRE run in one MULTI/EXEC, so
// a counter never exists without its TTL.
func (l *UsageLimiter) Increment(ctx context.Context, userID string) error {
	key := l.key(userID)
	if _, err := l.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, usageKeyTTL)
		return nil
	}); err != nil {
		return domain.WrapError(domain.ErrTemporary, "increment usage", err)
	}
	return nil
}

func (l *UsageLimiter) count(ctx context.Context, userID string) (int, error) {
	raw, err := l.client.Get(ctx, l.key(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.WrapError(domain.ErrTemporary, "read usage", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.WrapError(domain.ErrTemporary, "read usage", fmt.Errorf("counter %q: %w", raw, err))
	}
	return n, nil
}

func (l *UsageLimiter) key(userID string) string {
	return "usage:" + userID + ":" + l.now().UTC().Format("2006-01-02")
}
