package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nuthan1805/loyalty-managemen/internal/repository"
	"github.com/nuthan1805/loyalty-managemen/pkg/logger"
	"github.com/nuthan1805/loyalty-managemen/pkg/prom"
)

type ReconcilerMemberRepository interface {
	GetPoints(ctx context.Context, memberID string) (int64, error)
	SetPointsIf(ctx context.Context, memberID string, expected, computed int64) (bool, error)
	ListIDs(ctx context.Context, limit, offset int) ([]string, error)
}

type ReconcilerTransactionRepository interface {
	SumSuccessDeltas(ctx context.Context, memberID string) (int64, error)
}

// ReconcileResult reports one balance check. Corrected is true when the
// cached balance disagreed with the ledger and was overwritten.
type ReconcileResult struct {
	MemberID  string `json:"member_id"`
	Reported  int64  `json:"reported"`
	Computed  int64  `json:"computed"`
	Corrected bool   `json:"corrected"`
}

// ReconcilerService is the backstop for the balance invariant: whatever
// introduced drift, recomputing from the ledger and correcting the cache
// restores it. It runs concurrently with writers and never blocks them.
type ReconcilerService struct {
	memberRepo      ReconcilerMemberRepository
	transactionRepo ReconcilerTransactionRepository
}

func NewReconcilerService(memberRepo ReconcilerMemberRepository, transactionRepo ReconcilerTransactionRepository) *ReconcilerService {
	return &ReconcilerService{
		memberRepo:      memberRepo,
		transactionRepo: transactionRepo,
	}
}

// RecomputeBalance sums the member's success deltas and corrects the cached
// balance if it drifted. The correction is conditional on the value read, so
// a concurrent writer invalidates it and the check retries against fresh
// state. Idempotent: with no intervening writes a second call reports no
// correction.
func (s *ReconcilerService) RecomputeBalance(ctx context.Context, memberID string) (*ReconcileResult, error) {
	const maxRetries = 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		reported, err := s.memberRepo.GetPoints(ctx, memberID)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("read cached balance: %w", err)
		}

		computed, err := s.transactionRepo.SumSuccessDeltas(ctx, memberID)
		if err != nil {
			return nil, fmt.Errorf("sum ledger deltas: %w", err)
		}

		prom.IncCounter(prom.SystemReconciler, prom.MetricBalancesChecked)

		if reported == computed {
			return &ReconcileResult{
				MemberID: memberID,
				Reported: reported,
				Computed: computed,
			}, nil
		}

		ok, err := s.memberRepo.SetPointsIf(ctx, memberID, reported, computed)
		if err != nil {
			return nil, fmt.Errorf("correct balance: %w", err)
		}
		if ok {
			prom.IncCounter(prom.SystemReconciler, prom.MetricDriftCorrected)
			logger.Warn("balance drift corrected",
				"member_id", memberID,
				"reported", reported,
				"computed", computed)
			return &ReconcileResult{
				MemberID:  memberID,
				Reported:  reported,
				Computed:  computed,
				Corrected: true,
			}, nil
		}

		// The balance moved between the read and the correction; a writer
		// got there first. Re-read and compare again.
	}

	return nil, fmt.Errorf("reconcile %s: balance kept moving, gave up after retries", memberID)
}

// MemberIDs pages over the registry for sweep runs.
func (s *ReconcilerService) MemberIDs(ctx context.Context, limit, offset int) ([]string, error) {
	return s.memberRepo.ListIDs(ctx, limit, offset)
}
