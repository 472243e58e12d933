package model

import (
	"errors"
	"strings"
	"time"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// TransactionStatus is the outcome of an attempted point movement. Only
// success entries count toward a member's balance; error entries are kept
// for audit.
type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "success"
	TransactionError   TransactionStatus = "error"
)

// Transaction is one immutable entry of the points ledger. Entries are never
// edited or deleted after creation; corrections are new entries.
type Transaction struct {
	ID            string            `json:"id"`
	MemberID      string            `json:"member_id"`
	Name          string            `json:"name"` // member name snapshot at append time
	PointsUpdated int64             `json:"points_updated"`
	Type          TransactionType   `json:"type"`
	Description   string            `json:"description"`
	UpdatedBy     string            `json:"updated_by"`
	Status        TransactionStatus `json:"status"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Delta is the signed balance contribution of this entry: positive for a
// credit, negative for a debit. Callers must skip non-success entries.
func (t Transaction) Delta() int64 {
	if t.Type == TransactionDebit {
		return -t.PointsUpdated
	}
	return t.PointsUpdated
}

// TransactionCreateRequest is the input for recording a point movement.
// PointsUpdated is always a positive magnitude; direction is carried by Type.
type TransactionCreateRequest struct {
	MemberID      string          `json:"member_id"`
	Type          TransactionType `json:"type"`
	PointsUpdated int64           `json:"points_updated"`
	Description   string          `json:"description"`
	UpdatedBy     string          `json:"updated_by"`

	// IdempotencyKey is client-supplied; a retried request carrying the same
	// key returns the originally committed transaction instead of applying
	// the movement twice.
	IdempotencyKey string `json:"-"`
}

func (p TransactionCreateRequest) Validate() error {
	if strings.TrimSpace(p.MemberID) == "" {
		return errors.New("member_id is required")
	}
	if p.Type != TransactionCredit && p.Type != TransactionDebit {
		return errors.New("type must be credit or debit")
	}
	if p.PointsUpdated <= 0 {
		return errors.New("points_updated must be a positive amount")
	}
	if strings.TrimSpace(p.UpdatedBy) == "" {
		return errors.New("updated_by is required")
	}
	return nil
}

// TransactionFilter controls history queries.
type TransactionFilter struct {
	MemberID string
	Limit    int // default 5, the history page size
	Offset   int
}
