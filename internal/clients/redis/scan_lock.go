package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pramod/validator-backend/internal/logger"
)

// ScanLock dampens concurrent enrichment scans across replicas. It is
// best effort: acquisition failure or redis being down never blocks a
// scan, it only loses the dampening.
type ScanLock interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Close() error
}

type scanLock struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewScanLock(log *logger.Logger) (ScanLock, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_LOCK_PREFIX"))
	if prefix == "" {
		prefix = "enrich"
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

	return &scanLock{
		log:    log.With("service", "RedisScanLock"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (l *scanLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("redis scan lock not initialized")
	}
	ok, err := l.rdb.SetNX(ctx, l.prefix+":"+key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (l *scanLock) Release(ctx context.Context, key string) error {
	if l == nil || l.rdb == nil {
		return fmt.Errorf("redis scan lock not initialized")
	}
	return l.rdb.Del(ctx, l.prefix+":"+key).Err()
}

func (l *scanLock) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}

// NoopScanLock stands in when redis is not configured; every acquisition
// succeeds so scans proceed undampened.
type NoopScanLock struct{}

func (NoopScanLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}
func (NoopScanLock) Release(ctx context.Context, key string) error { return nil }
func (NoopScanLock) Close() error                                  { return nil }
