package runlock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL     = 30 * time.Minute
	lastRunTTL  = 30 * 24 * time.Hour
	keyLock     = "feedsync:lock:"
	keyLastRun  = "feedsync:last_run:"
	pingTimeout = 5 * time.Second
)

// ErrLocked is returned when another run of the same supplier holds the lock.
var ErrLocked = errors.New("another run holds the supplier lock")

// Coordinator serializes runs per supplier through redis. A nil *Coordinator
// is valid and does nothing, for setups without REDIS_URL.
type Coordinator struct {
	Client   *redis.Client
	Locker   *redislock.Client
	Supplier string
}

func Connect(ctx context.Context, redisURL, supplier string) (*Coordinator, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Coordinator{Client: client, Locker: redislock.New(client), Supplier: supplier}, nil
}

func LockKey(supplier string) string    { return keyLock + supplier }
func LastRunKey(supplier string) string { return keyLastRun + supplier }

// Acquire takes the supplier lock. The returned release func is always non-nil.
func (c *Coordinator) Acquire(ctx context.Context) (func(), error) {
	if c == nil {
		return func() {}, nil
	}
	lock, err := c.Locker.Obtain(ctx, LockKey(c.Supplier), lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return func() {}, fmt.Errorf("%w: %s", ErrLocked, c.Supplier)
	}
	if err != nil {
		return func() {}, fmt.Errorf("obtain lock: %w", err)
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}

// RecordRun stores v as JSON under the supplier's last run key.
func (c *Coordinator) RecordRun(ctx context.Context, v any) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, LastRunKey(c.Supplier), b, lastRunTTL).Err()
}

// LastRun decodes the last recorded run into v. It reports false when no run is stored.
func (c *Coordinator) LastRun(ctx context.Context, v any) (bool, error) {
	if c == nil {
		return false, nil
	}
	val, err := c.Client.Get(ctx, LastRunKey(c.Supplier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(val, v)
}

func (c *Coordinator) Close() error {
	if c == nil {
		return nil
	}
	return c.Client.Close()
}
