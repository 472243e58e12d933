package services

import (
	"errors"
	"time"

	"github.com/nuthan1805/loyalty-managemen/pkg/logger"
	"github.com/nuthan1805/loyalty-managemen/pkg/redis"
)

var (
	ErrDuplicateInFlight = errors.New("a request with this idempotency key is already being processed")
)

type IdempotencyConfig struct {
	// LockTTL bounds how long a crashed writer can block a retry.
	LockTTL time.Duration

	// RecordTTL is how long a committed transaction id stays replayable.
	RecordTTL time.Duration

	LockKeyPrefix   string
	RecordKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:         30 * time.Second,
		RecordTTL:       24 * time.Hour,
		LockKeyPrefix:   "txnlock:",
		RecordKeyPrefix: "txnkey:",
	}
}

// IdempotencyService guards recordTransaction against client retries. A
// timed-out write has an unknown outcome; retrying it with the same key
// either replays the committed transaction or runs it once.
type IdempotencyService struct {
	redis  redis.Adapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.Adapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

// Lookup returns the transaction id previously committed under key, if any.
func (s *IdempotencyService) Lookup(key string) (string, bool, error) {
	val, err := s.redis.Get(s.config.RecordKeyPrefix + key)
	if err != nil {
		if err == redis.NilError {
			return "", false, nil
		}
		return "", false, err
	}
	return string(val), len(val) > 0, nil
}

// Acquire takes the short-term processing lock for key. A second concurrent
// request with the same key is rejected rather than queued.
func (s *IdempotencyService) Acquire(key string) error {
	lockValue := []byte(time.Now().Format(time.RFC3339Nano))
	acquired, err := s.redis.SetNX(s.config.LockKeyPrefix+key, lockValue, s.config.LockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrDuplicateInFlight
	}
	return nil
}

// Commit records the committed transaction id under key and releases the lock.
func (s *IdempotencyService) Commit(key string, transactionID string) {
	err := s.redis.Set(s.config.RecordKeyPrefix+key, []byte(transactionID), s.config.RecordTTL)
	if err != nil {
		logger.Error("failed to store idempotency record", "key", key, "error", err)
	}
	s.Release(key)
}

// Release frees the lock so the client may retry after a failure.
func (s *IdempotencyService) Release(key string) {
	if err := s.redis.Del(s.config.LockKeyPrefix + key); err != nil {
		logger.Warn("failed to release idempotency lock", "key", key, "error", err)
	}
}
