package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nuthan1805/loyalty-managemen/internal/model"
	"github.com/nuthan1805/loyalty-managemen/internal/repository"
	"github.com/nuthan1805/loyalty-managemen/pkg/logger"
	"github.com/nuthan1805/loyalty-managemen/pkg/prom"
)

type LedgerMemberRepository interface {
	Get(ctx context.Context, memberID string) (*model.Member, error)
	CreditPoints(ctx context.Context, memberID string, amount int64) error
	DebitPoints(ctx context.Context, memberID string, amount int64) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type LedgerTransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	ListByMember(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

// LedgerService is the single writer of truth for balance changes. A point
// movement is one database transaction: the ledger append and the cached
// balance update commit together or not at all.
type LedgerService struct {
	memberRepo      LedgerMemberRepository
	transactionRepo LedgerTransactionRepository
	idempotency     *IdempotencyService
	historyPageSize int
}

func NewLedgerService(memberRepo LedgerMemberRepository, transactionRepo LedgerTransactionRepository, idempotency *IdempotencyService, historyPageSize int) *LedgerService {
	if historyPageSize <= 0 {
		historyPageSize = 5
	}
	return &LedgerService{
		memberRepo:      memberRepo,
		transactionRepo: transactionRepo,
		idempotency:     idempotency,
		historyPageSize: historyPageSize,
	}
}

func (s *LedgerService) RecordTransaction(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error) {
	if err := p.Validate(); err != nil {
		prom.IncCounterVec(prom.SystemLedger, prom.MetricTransactionsRejected, "validation")
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	if p.IdempotencyKey != "" && s.idempotency != nil {
		if txnID, ok, err := s.idempotency.Lookup(p.IdempotencyKey); err != nil {
			logger.Warn("idempotency lookup failed, proceeding without replay", "key", p.IdempotencyKey, "error", err)
		} else if ok {
			return s.transactionRepo.GetByID(ctx, txnID)
		}

		if err := s.idempotency.Acquire(p.IdempotencyKey); err != nil {
			if errors.Is(err, ErrDuplicateInFlight) {
				return nil, fmt.Errorf("%w: %s", ErrConflict, err)
			}
			return nil, fmt.Errorf("acquire idempotency lock: %w", err)
		}
	}

	txn, err := s.record(ctx, p)

	if p.IdempotencyKey != "" && s.idempotency != nil {
		if err == nil {
			s.idempotency.Commit(p.IdempotencyKey, txn.ID)
		} else {
			s.idempotency.Release(p.IdempotencyKey)
		}
	}

	return txn, err
}

func (s *LedgerService) record(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error) {
	member, err := s.memberRepo.Get(ctx, p.MemberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			prom.IncCounterVec(prom.SystemLedger, prom.MetricTransactionsRejected, "not_found")
			return nil, ErrNotFound
		}
		return nil, backendErr("get member", err)
	}

	txn := &model.Transaction{
		ID:            uuid.NewString(),
		MemberID:      member.MemberID,
		Name:          member.Name,
		PointsUpdated: p.PointsUpdated,
		Type:          p.Type,
		Description:   p.Description,
		UpdatedBy:     p.UpdatedBy,
		Status:        model.TransactionSuccess,
		UpdatedAt:     time.Now(),
	}

	var committed *model.Transaction
	err = s.memberRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Move the cached balance first; this serializes concurrent
		// writers on the member row and fails fast on insufficient funds.
		if p.Type == model.TransactionDebit {
			if err := s.memberRepo.DebitPoints(ctx, p.MemberID, p.PointsUpdated); err != nil {
				if errors.Is(err, repository.ErrInsufficientBalance) {
					return ErrInsufficientBalance
				}
				return backendErr("debit points", err)
			}
		} else {
			if err := s.memberRepo.CreditPoints(ctx, p.MemberID, p.PointsUpdated); err != nil {
				return backendErr("credit points", err)
			}
		}

		// 2. Append the ledger entry. A failure rolls the balance back too.
		created, err := s.transactionRepo.Create(ctx, txn)
		if err != nil {
			return backendErr("append transaction", err)
		}
		committed = created
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			prom.IncCounterVec(prom.SystemLedger, prom.MetricTransactionsRejected, "insufficient_balance")
			s.appendRejectionAudit(ctx, txn)
			// The balance read before the transaction can be stale under
			// concurrency, so the message quotes only the requested amount.
			return nil, fmt.Errorf("%w: debit of %d exceeds balance", ErrInsufficientBalance, p.PointsUpdated)
		}
		return nil, err
	}

	prom.IncCounterVec(prom.SystemLedger, prom.MetricTransactionsRecorded, string(p.Type))
	return committed, nil
}

// appendRejectionAudit records a status=error entry for a rejected movement.
// Error entries never contribute to balance; losing one is logged, not fatal.
func (s *LedgerService) appendRejectionAudit(ctx context.Context, txn *model.Transaction) {
	audit := *txn
	audit.ID = uuid.NewString()
	audit.Status = model.TransactionError
	audit.UpdatedAt = time.Now()
	if _, err := s.transactionRepo.Create(ctx, &audit); err != nil {
		logger.Warn("failed to append rejection audit entry",
			"member_id", audit.MemberID, "error", err)
	}
}

// History returns a member's ledger entries, most recent first. An existing
// member with no transactions gets an empty page, not an error.
func (s *LedgerService) History(ctx context.Context, memberID string, limit int) ([]*model.Transaction, int64, error) {
	if _, err := s.memberRepo.Get(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, backendErr("get member", err)
	}

	if limit <= 0 {
		limit = s.historyPageSize
	}

	items, total, err := s.transactionRepo.ListByMember(ctx, model.TransactionFilter{
		MemberID: memberID,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*model.Transaction{}
	}
	return items, total, nil
}
