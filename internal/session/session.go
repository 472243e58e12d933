package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nuthan1805/loyalty-managemen/pkg/logger"
	"github.com/nuthan1805/loyalty-managemen/pkg/redis"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpired      = errors.New("session expired")
)

const activityKeyPrefix = "session:"

// Session is the explicit per-request session object carried into core
// calls. Actor is the authenticated identity stamped into updated_by.
type Session struct {
	ID        string
	Actor     string
	Email     string
	ExpiresAt time.Time
}

type Config struct {
	Secret     string
	TTL        time.Duration
	Inactivity time.Duration
}

// Manager validates session tokens from the authentication collaborator and
// enforces an inactivity window on top of the token lifetime. Each live
// session owns one cancellable timer, reset on activity; when it fires, the
// onExpire callback runs and the session stops validating.
type Manager struct {
	secret     []byte
	ttl        time.Duration
	inactivity time.Duration
	redis      redis.Adapter
	onExpire   func(sessionID, actor string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewManager(cfg Config, redisAdapter redis.Adapter, onExpire func(sessionID, actor string)) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = 30 * time.Minute
	}
	if onExpire == nil {
		onExpire = func(string, string) {}
	}
	return &Manager{
		secret:     []byte(cfg.Secret),
		ttl:        cfg.TTL,
		inactivity: cfg.Inactivity,
		redis:      redisAdapter,
		onExpire:   onExpire,
		timers:     map[string]*time.Timer{},
	}
}

// Validate parses the token and checks the session is still live. A token
// seen for the first time within its adoption window starts an activity
// record; one whose activity record lapsed is expired even if the token
// itself has not.
func (m *Manager) Validate(token string) (*Session, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	// The manager's TTL caps the session lifetime even when the collaborator
	// minted a token with a longer (or missing) exp claim.
	if claims.IssuedAt != nil && time.Since(claims.IssuedAt.Time) > m.ttl {
		return nil, ErrExpired
	}

	s := &Session{
		ID:    claims.ID,
		Actor: claims.Subject,
	}
	if claims.Audience != nil && len(claims.Audience) > 0 {
		s.Email = claims.Audience[0]
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}

	exists, err := m.redis.Exist(activityKeyPrefix + s.ID)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		// Unseen session: adopt it only while the token is fresh enough that
		// the inactivity window could not have lapsed since issuance.
		if claims.IssuedAt == nil || time.Since(claims.IssuedAt.Time) > m.inactivity {
			return nil, ErrExpired
		}
		if err := m.redis.Set(activityKeyPrefix+s.ID, []byte(s.Actor), m.inactivity); err != nil {
			return nil, err
		}
	}

	m.Touch(s)
	return s, nil
}

// Touch marks activity: the redis record and the inactivity timer both reset.
func (m *Manager) Touch(s *Session) {
	if _, err := m.redis.Expire(activityKeyPrefix+s.ID, m.inactivity); err != nil {
		logger.Warn("failed to refresh session activity", "session_id", s.ID, "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.timers[s.ID]; ok {
		timer.Stop()
	}
	id, actor := s.ID, s.Actor
	m.timers[s.ID] = time.AfterFunc(m.inactivity, func() {
		m.expire(id, actor)
	})
}

// Close logs the session out immediately.
func (m *Manager) Close(s *Session) {
	m.mu.Lock()
	if timer, ok := m.timers[s.ID]; ok {
		timer.Stop()
		delete(m.timers, s.ID)
	}
	m.mu.Unlock()

	if err := m.redis.Del(activityKeyPrefix + s.ID); err != nil {
		logger.Warn("failed to delete session record", "session_id", s.ID, "error", err)
	}
}

func (m *Manager) expire(sessionID, actor string) {
	m.mu.Lock()
	delete(m.timers, sessionID)
	m.mu.Unlock()

	if err := m.redis.Del(activityKeyPrefix + sessionID); err != nil {
		logger.Warn("failed to delete expired session record", "session_id", sessionID, "error", err)
	}
	logger.Info("session expired by inactivity", "session_id", sessionID, "actor", actor)
	m.onExpire(sessionID, actor)
}
