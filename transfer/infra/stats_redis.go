package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deal-transfer/transfer/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore acumula estatísticas dos passes em hashes do Redis:
//
//	<prefix>:total          state:<estado>, moved, rejected, failed
//	<prefix>:day:YYYYMMDD   idem, com TTL
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas nas chaves por dia; total é cumulativo e não expira.
	ttl time.Duration
	loc *time.Location
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsLocation(loc *time.Location) RedisStatsOption {
	return func(s *RedisStatsStore) { s.loc = loc }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "dealtransfer:stats",
		ttl:    30 * 24 * time.Hour,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.PassEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	totalKey := s.prefix + ":total"
	dayKey := fmt.Sprintf("%s:day:%s", s.prefix, at.In(s.loc).Format("20060102"))

	pipe := s.rdb.Pipeline()
	for _, key := range []string{totalKey, dayKey} {
		pipe.HIncrBy(ctx, key, "state:"+string(ev.State), 1)
		if ev.Moved > 0 {
			pipe.HIncrBy(ctx, key, "moved", int64(ev.Moved))
		}
		if ev.Rejected > 0 {
			pipe.HIncrBy(ctx, key, "rejected", int64(ev.Rejected))
		}
		if ev.Failed > 0 {
			pipe.HIncrBy(ctx, key, "failed", int64(ev.Failed))
		}
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, dayKey, s.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}
