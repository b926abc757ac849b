package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink Redis 统计接收器
//
// Writes hash counters: a cumulative total, a per-minute time series (with
// TTL) and per-route counters. Minute buckets expire so cardinality stays
// bounded; the total never expires.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSink 创建 Redis 统计接收器
func NewRedisSink(rdb *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "jurisapi:ratelimit"
	}
	return &RedisSink{
		rdb:    rdb,
		prefix: strings.Trim(prefix, ":"),
		ttl:    24 * time.Hour,
	}
}

// Record 记录一次决策事件
func (s *RedisSink) Record(ctx context.Context, ev Event) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	pipe.Expire(ctx, bucketKey, s.ttl)

	route := strings.TrimSpace(ev.Method + " " + ev.Route)
	if route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}
