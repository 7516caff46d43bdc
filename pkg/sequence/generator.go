package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

// Generator issues human-readable business codes. Codes are per tenant and
// reset daily; uniqueness within the day comes from a Redis counter.
type Generator interface {
	NextPaymentCode(ctx context.Context, tenantID string) (string, error)
	NextImportCode(ctx context.Context, tenantID string) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
	}
}

func (g *RedisGenerator) NextPaymentCode(ctx context.Context, tenantID string) (string, error) {
	return g.nextDailyCode(ctx, "PAY", tenantID)
}

func (g *RedisGenerator) NextImportCode(ctx context.Context, tenantID string) (string, error) {
	return g.nextDailyCode(ctx, "IMP", tenantID)
}

func (g *RedisGenerator) nextDailyCode(ctx context.Context, prefix, tenantID string) (string, error) {
	today := time.Now().UTC().Format("060102")
	key := fmt.Sprintf("seq:%s:%s:%s", prefix, tenantID, today)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		expire := time.Until(time.Now().Truncate(24 * time.Hour).Add(24*time.Hour - time.Second))
		_ = g.rdb.Expire(ctx, key, expire).Err()
	}

	return fmt.Sprintf("%s-%s-%04d", prefix, today, seq), nil
}
