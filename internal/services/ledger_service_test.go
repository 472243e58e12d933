package services

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nuthan1805/loyalty-managemen/internal/model"
	"github.com/nuthan1805/loyalty-managemen/internal/repository"
	"github.com/nuthan1805/loyalty-managemen/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Get(ctx context.Context, memberID string) (*model.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

func (m *MockMemberRepository) CreditPoints(ctx context.Context, memberID string, amount int64) error {
	args := m.Called(ctx, memberID, amount)
	return args.Error(0)
}

func (m *MockMemberRepository) DebitPoints(ctx context.Context, memberID string, amount int64) error {
	args := m.Called(ctx, memberID, amount)
	return args.Error(0)
}

func (m *MockMemberRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockTransactionRepository struct {
	mock.Mock
}

// Create echoes the appended entry back when the expectation returns nil,
// the way the real repository does.
func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	if args.Get(0) == nil {
		return txn, nil
	}
	return args.Get(0).(*model.Transaction), nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByMember(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

func member(id string, points int64) *model.Member {
	return &model.Member{MemberID: id, Name: "Asha Rao", Email: "asha@example.com", Points: points}
}

func TestLedgerService_RecordTransaction_Credit(t *testing.T) {
	memberRepo := new(MockMemberRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewLedgerService(memberRepo, txnRepo, nil, 5)

	memberRepo.On("Get", ctx, "M-001").Return(member("M-001", 100), nil)
	memberRepo.On("WithinTransaction", mock.Anything, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	memberRepo.On("CreditPoints", mock.Anything, "M-001", int64(250)).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil, nil).Once()

	result, err := service.RecordTransaction(ctx, model.TransactionCreateRequest{
		MemberID:      "M-001",
		Type:          model.TransactionCredit,
		PointsUpdated: 250,
		Description:   "signup bonus",
		UpdatedBy:     "admin",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "M-001", result.MemberID)
	assert.Equal(t, "Asha Rao", result.Name)
	assert.Equal(t, model.TransactionSuccess, result.Status)
	assert.Equal(t, int64(250), result.PointsUpdated)
	assert.NotEmpty(t, result.ID)

	memberRepo.AssertExpectations(t)
	txnRepo.AssertExpectations(t)
}

func TestLedgerService_RecordTransaction_Debit(t *testing.T) {
	memberRepo := new(MockMemberRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewLedgerService(memberRepo, txnRepo, nil, 5)

	memberRepo.On("Get", ctx, "M-001").Return(member("M-001", 500), nil)
	memberRepo.On("WithinTransaction", mock.Anything, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	memberRepo.On("DebitPoints", mock.Anything, "M-001", int64(120)).Return(nil)
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.Type == model.TransactionDebit && txn.Status == model.TransactionSuccess
	})).Return(nil, nil)

	result, err := service.RecordTransaction(ctx, model.TransactionCreateRequest{
		MemberID:      "M-001",
		Type:          model.TransactionDebit,
		PointsUpdated: 120,
		UpdatedBy:     "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionDebit, result.Type)

	memberRepo.AssertExpectations(t)
	txnRepo.AssertExpectations(t)
}

func TestLedgerService_RecordTransaction_InsufficientBalance(t *testing.T) {
	memberRepo := new(MockMemberRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewLedgerService(memberRepo, txnRepo, nil, 5)

	memberRepo.On("Get", ctx, "M-001").Return(member("M-001", 50), nil)
	memberRepo.On("WithinTransaction", mock.Anything, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	memberRepo.On("DebitPoints", mock.Anything, "M-001", int64(200)).Return(repository.ErrInsufficientBalance)
	// the rejection still leaves an audit entry with status=error
	txnRepo.On("Create", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
		return txn.Status == model.TransactionError && txn.PointsUpdated == 200
	})).Return(nil, nil).Once()

	result, err := service.RecordTransaction(ctx, model.TransactionCreateRequest{
		MemberID:      "M-001",
		Type:          model.TransactionDebit,
		PointsUpdated: 200,
		UpdatedBy:     "admin",
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Nil(t, result)
	// The message never quotes the balance; the value read before the
	// transaction may already be stale when the rejection happens.
	assert.EqualError(t, err, "insufficient balance: debit of 200 exceeds balance")

	memberRepo.AssertExpectations(t)
	txnRepo.AssertExpectations(t)
}

func TestLedgerService_RecordTransaction_Validation(t *testing.T) {
	memberRepo := new(MockMemberRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewLedgerService(memberRepo, txnRepo, nil, 5)

	cases := []struct {
		name string
		req  model.TransactionCreateRequest
	}{
		{"missing member id", model.TransactionCreateRequest{Type: model.TransactionCredit, PointsUpdated: 10, UpdatedBy: "admin"}},
		{"zero amount", model.TransactionCreateRequest{MemberID: "M-001", Type: model.TransactionCredit, PointsUpdated: 0, UpdatedBy: "admin"}},
		{"negative amount", model.TransactionCreateRequest{MemberID: "M-001", Type: model.TransactionCredit, PointsUpdated: -5, UpdatedBy: "admin"}},
		{"unknown type", model.TransactionCreateRequest{MemberID: "M-001", Type: "transfer", PointsUpdated: 10, UpdatedBy: "admin"}},
		{"missing actor", model.TransactionCreateRequest{MemberID: "M-001", Type: model.TransactionCredit, PointsUpdated: 10}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := service.RecordTransaction(ctx, tc.req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, result)
		})
	}

	memberRepo.AssertNotCalled(t, "Get")
	memberRepo.AssertNotCalled(t, "WithinTransaction")
}

func TestLedgerService_RecordTransaction_MemberNotFound(t *testing.T) {
	memberRepo := new(MockMemberRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewLedgerService(memberRepo, txnRepo, nil, 5)

	memberRepo.On("Get", ctx, "M-404").Return(nil, repository.ErrMemberNotFound)

	result, err := service.RecordTransaction(ctx, model.TransactionCreateRequest{
		MemberID:      "M-404",
		Type:          model.TransactionCredit,
		PointsUpdated: 10,
		UpdatedBy:     "admin",
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, result)

	memberRepo.AssertNotCalled(t, "WithinTransaction")
}

func TestLedgerService_RecordTransaction_BackendUnavailable(t *testing.T) {
	memberRepo := new(MockMemberRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewLedgerService(memberRepo, txnRepo, nil, 5)

	// a lost connection is not a 500; it maps to the unavailable kind
	memberRepo.On("Get", ctx, "M-001").Return(nil, driver.ErrBadConn)

	result, err := service.RecordTransaction(ctx, model.TransactionCreateRequest{
		MemberID:      "M-001",
		Type:          model.TransactionCredit,
		PointsUpdated: 10,
		UpdatedBy:     "admin",
	})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Nil(t, result)

	memberRepo.AssertNotCalled(t, "WithinTransaction")
}

func TestLedgerService_RecordTransaction_Idempotency(t *testing.T) {
	mr := miniredis.RunT(t)

	adapter, err := redis.NewAdapter("test-ledger-idem", "", &redis.Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)

	memberRepo := new(MockMemberRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	idem := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	service := NewLedgerService(memberRepo, txnRepo, idem, 5)

	memberRepo.On("Get", ctx, "M-001").Return(member("M-001", 100), nil)
	memberRepo.On("WithinTransaction", mock.Anything, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	memberRepo.On("CreditPoints", mock.Anything, "M-001", int64(30)).Return(nil).Once()
	txnRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil, nil).Once()

	req := model.TransactionCreateRequest{
		MemberID:       "M-001",
		Type:           model.TransactionCredit,
		PointsUpdated:  30,
		UpdatedBy:      "admin",
		IdempotencyKey: "retry-abc",
	}

	first, err := service.RecordTransaction(ctx, req)
	require.NoError(t, err)

	// the retry replays the committed entry instead of crediting again
	txnRepo.On("GetByID", ctx, first.ID).Return(first, nil).Once()

	second, err := service.RecordTransaction(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	memberRepo.AssertExpectations(t)
	txnRepo.AssertExpectations(t)
}

func TestLedgerService_History(t *testing.T) {
	memberRepo := new(MockMemberRepository)
	txnRepo := new(MockTransactionRepository)
	ctx := context.Background()

	service := NewLedgerService(memberRepo, txnRepo, nil, 5)

	t.Run("default page size", func(t *testing.T) {
		memberRepo.On("Get", ctx, "M-001").Return(member("M-001", 100), nil)
		txnRepo.On("ListByMember", ctx, model.TransactionFilter{MemberID: "M-001", Limit: 5}).
			Return([]*model.Transaction{{ID: "t1", MemberID: "M-001"}}, int64(1), nil).Once()

		items, total, err := service.History(ctx, "M-001", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, items, 1)
	})

	t.Run("explicit limit", func(t *testing.T) {
		txnRepo.On("ListByMember", ctx, model.TransactionFilter{MemberID: "M-001", Limit: 20}).
			Return([]*model.Transaction{}, int64(0), nil).Once()

		items, total, err := service.History(ctx, "M-001", 20)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("member not found", func(t *testing.T) {
		memberRepo.On("Get", ctx, "M-404").Return(nil, repository.ErrMemberNotFound)

		_, _, err := service.History(ctx, "M-404", 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	txnRepo.AssertExpectations(t)
}
