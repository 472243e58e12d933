package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RegisterRequest represents an operator sign-up.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest accepts either the username or the email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// AuthResponse carries the session token the core API validates.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type operator struct {
	Username string
	Email    string
	Salt     string
	Digest   string
}

// OperatorStore is an in-memory registry of operators. This binary is a dev
// stand-in for the real identity provider, so nothing is persisted.
type OperatorStore struct {
	mu        sync.RWMutex
	operators map[string]*operator
}

func NewOperatorStore() *OperatorStore {
	return &OperatorStore{operators: make(map[string]*operator)}
}

func (s *OperatorStore) Register(username, email, password string) (*operator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	if _, exists := s.operators[key]; exists {
		return nil, false
	}
	for _, op := range s.operators {
		if strings.EqualFold(op.Email, email) {
			return nil, false
		}
	}

	salt := randomSalt()
	op := &operator{
		Username: username,
		Email:    email,
		Salt:     salt,
		Digest:   digest(password, salt),
	}
	s.operators[key] = op
	return op, true
}

func (s *OperatorStore) Authenticate(identifier, password string) (*operator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.operators[strings.ToLower(identifier)]
	if !ok {
		for _, candidate := range s.operators {
			if strings.EqualFold(candidate.Email, identifier) {
				op = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, false
	}

	want := digest(password, op.Salt)
	if subtle.ConstantTimeCompare([]byte(want), []byte(op.Digest)) != 1 {
		return nil, false
	}
	return op, true
}

func randomSalt() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("failed to read random salt")
	}
	return hex.EncodeToString(b)
}

func digest(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

// Handler holds the store and the token signing settings.
type Handler struct {
	store  *OperatorStore
	secret []byte
	ttl    time.Duration
}

func NewHandler(store *OperatorStore, secret []byte, ttl time.Duration) *Handler {
	return &Handler{store: store, secret: secret, ttl: ttl}
}

// Register creates an operator and immediately issues a session token.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	op, ok := h.store.Register(req.Username, req.Email, req.Password)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{
			"error": "username or email already registered",
		})
		return
	}

	log.Info().
		Str("username", op.Username).
		Str("email", op.Email).
		Msg("Operator registered")

	h.respondWithToken(c, op)
}

// Login validates credentials and issues a session token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	op, ok := h.store.Authenticate(req.Identifier, req.Password)
	if !ok {
		log.Warn().Str("identifier", req.Identifier).Msg("Login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid credentials",
		})
		return
	}

	log.Info().Str("username", op.Username).Msg("Operator logged in")

	h.respondWithToken(c, op)
}

func (h *Handler) respondWithToken(c *gin.Context, op *operator) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   op.Username,
		Audience:  jwt.ClaimStrings{op.Email},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to issue token",
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token:    token,
		Username: op.Username,
		Email:    op.Email,
	})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	router.POST("/auth/register", handler.Register)
	router.POST("/auth/login", handler.Login)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	addr := getEnv("AUTH_LISTEN_ADDR", ":3001")
	secret := getEnv("SESSION_SECRET", "dev-only-secret")
	ttl := getEnvDuration("SESSION_TTL", 12*time.Hour)

	log.Info().
		Str("addr", addr).
		Dur("session_ttl", ttl).
		Msg("Starting auth collaborator")

	store := NewOperatorStore()
	handler := NewHandler(store, []byte(secret), ttl)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
