package services

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Error kinds returned across the service boundary. Handlers map these to
// HTTP statuses; nothing is retried internally.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("member not found")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBackendUnavailable  = errors.New("backend store unavailable")
)

// isBackendUnavailable reports whether err is a connection-level failure of
// the backing store rather than a semantic one.
func isBackendUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// backendErr wraps a repository error, folding connection-level failures into
// ErrBackendUnavailable so handlers answer 503 instead of 500.
func backendErr(op string, err error) error {
	if isBackendUnavailable(err) {
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
