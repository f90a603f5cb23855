package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"deal-transfer/transfer/domain"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore guarda o contador diário em um hash do Redis
// (<prefix>:daily, campo = YYYY-MM-DD).
//
// Save troca o hash inteiro dentro de MULTI/EXEC, então leitores nunca veem
// um estado intermediário.
type RedisCounterStore struct {
	rdb    redis.Cmdable
	prefix string
}

type RedisCounterOption func(*RedisCounterStore)

func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(s *RedisCounterStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func NewRedisCounterStore(rdb redis.Cmdable, opts ...RedisCounterOption) *RedisCounterStore {
	s := &RedisCounterStore{
		rdb:    rdb,
		prefix: "dealtransfer",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisCounterStore) key() string { return s.prefix + ":daily" }

// Load implementa domain.CounterStore. Hash inexistente vira Counter vazio.
func (s *RedisCounterStore) Load(ctx context.Context) (domain.Counter, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis hgetall: %v", domain.ErrStorageRead, err)
	}

	c := make(domain.Counter, len(raw))
	for day, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid count %q for %s", domain.ErrStorageRead, v, day)
		}
		c[day] = n
	}
	return c, nil
}

// Save implementa domain.CounterStore.
func (s *RedisCounterStore) Save(ctx context.Context, c domain.Counter) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key())
	if len(c) > 0 {
		fields := make(map[string]any, len(c))
		for day, n := range c {
			fields[day] = n
		}
		pipe.HSet(ctx, s.key(), fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis exec: %v", domain.ErrStorageWrite, err)
	}
	return nil
}

// Incr implementa domain.CounterIncrementer: soma n ao contador do dia de forma
// atômica (HINCRBY) e devolve o novo total. O workflow usa Incr no lugar de Save.
func (s *RedisCounterStore) Incr(ctx context.Context, dateKey string, n int) (int, error) {
	v, err := s.rdb.HIncrBy(ctx, s.key(), dateKey, int64(n)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: redis hincrby: %v", domain.ErrStorageWrite, err)
	}
	return int(v), nil
}
