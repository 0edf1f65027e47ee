package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// WakeBus carries "a job of this type is claimable" notices between the API
// and worker processes. Messages are bare job type names.
type WakeBus interface {
	Wake(ctx context.Context, jobType string) error
	StartListener(ctx context.Context, onWake func(jobType string)) error
	Close() error
}

type wakeBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewWakeBus(log *logger.Logger, addr, channel string) (WakeBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "job_wake"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newWakeBus(log, rdb, channel), nil
}

func newWakeBus(log *logger.Logger, rdb *goredis.Client, channel string) *wakeBus {
	return &wakeBus{
		log:     log.With("service", "RedisWakeBus"),
		rdb:     rdb,
		channel: channel,
	}
}

func (b *wakeBus) Wake(ctx context.Context, jobType string) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis wake bus not initialized")
	}
	return b.rdb.Publish(ctx, b.channel, jobType).Err()
}

func (b *wakeBus) StartListener(ctx context.Context, onWake func(jobType string)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis wake bus not initialized")
	}
	if onWake == nil {
		return fmt.Errorf("onWake callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				jt := strings.TrimSpace(m.Payload)
				if jt == "" {
					b.log.Warn("empty wake payload")
					continue
				}
				onWake(jt)
			}
		}
	}()
	return nil
}

func (b *wakeBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
