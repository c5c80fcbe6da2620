package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired before the wait deadline.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker serializes work on a key across callers.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// VehicleKey is the lock key guarding a vehicle's booking intervals.
func VehicleKey(vehicleID int32) string {
	return fmt.Sprintf("rentcar:lock:vehicle:%d", vehicleID)
}

// Config holds lock backend configuration
type Config struct {
	Backend       string // "local" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration // how long a redis lock survives a crashed holder
	Wait          time.Duration // how long Lock waits before ErrLockTimeout
}

// New returns the configured Locker. For redis it verifies connectivity first.
func New(ctx context.Context, cfg Config) (Locker, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocalLocker(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisLocker(rdb, cfg.TTL, cfg.Wait), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

// LocalLocker is an in-process keyed mutex. It only serializes callers sharing the process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, s, true) })
	}, nil
}

func (l *LocalLocker) release(key string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

// BookingKey is the lock key guarding a single booking's payment and lifecycle updates.
func BookingKey(bookingID int32) string {
	return fmt.Sprintf("rentcar:lock:booking:%d", bookingID)
}

// CustomerKey is the lock key guarding a customer's order-history dependent discount redemption.
// Registered users are keyed by id, guests by phone.
func CustomerKey(userID int32, guestPhone string) string {
	if userID != 0 {
		return fmt.Sprintf("rentcar:lock:customer:user:%d", userID)
	}
	return "rentcar:lock:customer:guest:" + guestPhone
}
