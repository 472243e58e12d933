package services

import (
	"context"
	"sync"
	"testing"

	"github.com/nuthan1805/loyalty-managemen/internal/model"
	"github.com/nuthan1805/loyalty-managemen/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLedger is a mutex-guarded in-memory stand-in for the member and
// transaction repositories. WithinTransaction holds the lock for the whole
// callback, so a balance move and its ledger append commit together, the
// same way the row lock serializes concurrent writers on a member.
type memoryLedger struct {
	mu     sync.Mutex
	points map[string]int64
	names  map[string]string

	entriesMu sync.Mutex
	entries   []*model.Transaction
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		points: map[string]int64{},
		names:  map[string]string{},
	}
}

func (l *memoryLedger) addMember(memberID, name string, points int64) {
	l.points[memberID] = points
	l.names[memberID] = name
}

func (l *memoryLedger) balance(memberID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.points[memberID]
}

func (l *memoryLedger) Get(ctx context.Context, memberID string) (*model.Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name, ok := l.names[memberID]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	return &model.Member{MemberID: memberID, Name: name, Points: l.points[memberID]}, nil
}

// CreditPoints and DebitPoints run inside WithinTransaction, which already
// holds the lock.
func (l *memoryLedger) CreditPoints(ctx context.Context, memberID string, amount int64) error {
	l.points[memberID] += amount
	return nil
}

func (l *memoryLedger) DebitPoints(ctx context.Context, memberID string, amount int64) error {
	if l.points[memberID] < amount {
		return repository.ErrInsufficientBalance
	}
	l.points[memberID] -= amount
	return nil
}

func (l *memoryLedger) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

func (l *memoryLedger) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	l.entriesMu.Lock()
	defer l.entriesMu.Unlock()
	copied := *txn
	l.entries = append(l.entries, &copied)
	return &copied, nil
}

func (l *memoryLedger) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	l.entriesMu.Lock()
	defer l.entriesMu.Unlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (l *memoryLedger) ListByMember(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	l.entriesMu.Lock()
	defer l.entriesMu.Unlock()
	var items []*model.Transaction
	for _, e := range l.entries {
		if e.MemberID == f.MemberID {
			items = append(items, e)
		}
	}
	return items, int64(len(items)), nil
}

func (l *memoryLedger) countByStatus(status model.TransactionStatus) int {
	l.entriesMu.Lock()
	defer l.entriesMu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

func TestLedgerService_ConcurrentDebits(t *testing.T) {
	store := newMemoryLedger()
	store.addMember("M-001", "Asha Rao", 1000)

	svc := NewLedgerService(store, store, nil, 5)

	const writers = 20
	var wg sync.WaitGroup
	results := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordTransaction(context.Background(), model.TransactionCreateRequest{
				MemberID:      "M-001",
				Type:          model.TransactionDebit,
				PointsUpdated: 100,
				UpdatedBy:     "ops",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			require.ErrorIs(t, err, ErrInsufficientBalance)
			rejected++
		}
	}

	// 1000 points at 100 per debit: exactly 10 commits, never an overdraft.
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, rejected)
	assert.Equal(t, int64(0), store.balance("M-001"))
	assert.Equal(t, 10, store.countByStatus(model.TransactionSuccess))
	assert.Equal(t, 10, store.countByStatus(model.TransactionError))
}

func TestLedgerService_ConcurrentCredits(t *testing.T) {
	store := newMemoryLedger()
	store.addMember("M-001", "Asha Rao", 0)

	svc := NewLedgerService(store, store, nil, 5)

	const writers = 25
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordTransaction(context.Background(), model.TransactionCreateRequest{
				MemberID:      "M-001",
				Type:          model.TransactionCredit,
				PointsUpdated: 10,
				UpdatedBy:     "ops",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	for err := range results {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(writers*10), store.balance("M-001"))
	assert.Equal(t, writers, store.countByStatus(model.TransactionSuccess))

	// the cached balance and the sum of success deltas agree
	items, total, err := store.ListByMember(context.Background(), model.TransactionFilter{MemberID: "M-001"})
	require.NoError(t, err)
	assert.Equal(t, int64(writers), total)
	var sum int64
	for _, e := range items {
		sum += e.Delta()
	}
	assert.Equal(t, store.balance("M-001"), sum)
}
