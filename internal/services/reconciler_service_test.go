package services

import (
	"context"
	"testing"

	"github.com/nuthan1805/loyalty-managemen/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) GetPoints(ctx context.Context, memberID string) (int64, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceRepository) SetPointsIf(ctx context.Context, memberID string, expected, computed int64) (bool, error) {
	args := m.Called(ctx, memberID, expected, computed)
	return args.Bool(0), args.Error(1)
}

func (m *MockBalanceRepository) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockDeltaRepository struct {
	mock.Mock
}

func (m *MockDeltaRepository) SumSuccessDeltas(ctx context.Context, memberID string) (int64, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(int64), args.Error(1)
}

func TestReconcilerService_RecomputeBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("balance matches ledger", func(t *testing.T) {
		memberRepo := new(MockBalanceRepository)
		txnRepo := new(MockDeltaRepository)
		service := NewReconcilerService(memberRepo, txnRepo)

		memberRepo.On("GetPoints", ctx, "M-001").Return(int64(410), nil)
		txnRepo.On("SumSuccessDeltas", ctx, "M-001").Return(int64(410), nil)

		result, err := service.RecomputeBalance(ctx, "M-001")
		require.NoError(t, err)
		assert.False(t, result.Corrected)
		assert.Equal(t, int64(410), result.Reported)
		assert.Equal(t, int64(410), result.Computed)
		memberRepo.AssertNotCalled(t, "SetPointsIf")
	})

	t.Run("drift is corrected", func(t *testing.T) {
		memberRepo := new(MockBalanceRepository)
		txnRepo := new(MockDeltaRepository)
		service := NewReconcilerService(memberRepo, txnRepo)

		memberRepo.On("GetPoints", ctx, "M-001").Return(int64(500), nil)
		txnRepo.On("SumSuccessDeltas", ctx, "M-001").Return(int64(410), nil)
		memberRepo.On("SetPointsIf", ctx, "M-001", int64(500), int64(410)).Return(true, nil)

		result, err := service.RecomputeBalance(ctx, "M-001")
		require.NoError(t, err)
		assert.True(t, result.Corrected)
		assert.Equal(t, int64(500), result.Reported)
		assert.Equal(t, int64(410), result.Computed)
	})

	t.Run("idempotent after correction", func(t *testing.T) {
		memberRepo := new(MockBalanceRepository)
		txnRepo := new(MockDeltaRepository)
		service := NewReconcilerService(memberRepo, txnRepo)

		memberRepo.On("GetPoints", ctx, "M-001").Return(int64(500), nil).Once()
		memberRepo.On("GetPoints", ctx, "M-001").Return(int64(410), nil).Once()
		txnRepo.On("SumSuccessDeltas", ctx, "M-001").Return(int64(410), nil)
		memberRepo.On("SetPointsIf", ctx, "M-001", int64(500), int64(410)).Return(true, nil).Once()

		first, err := service.RecomputeBalance(ctx, "M-001")
		require.NoError(t, err)
		assert.True(t, first.Corrected)

		second, err := service.RecomputeBalance(ctx, "M-001")
		require.NoError(t, err)
		assert.False(t, second.Corrected)
	})

	t.Run("concurrent writer invalidates the correction", func(t *testing.T) {
		memberRepo := new(MockBalanceRepository)
		txnRepo := new(MockDeltaRepository)
		service := NewReconcilerService(memberRepo, txnRepo)

		// first pass reads stale state, the conditional write fails, the
		// retry sees the fresh balance already matching the ledger
		memberRepo.On("GetPoints", ctx, "M-001").Return(int64(500), nil).Once()
		txnRepo.On("SumSuccessDeltas", ctx, "M-001").Return(int64(410), nil).Once()
		memberRepo.On("SetPointsIf", ctx, "M-001", int64(500), int64(410)).Return(false, nil).Once()

		memberRepo.On("GetPoints", ctx, "M-001").Return(int64(440), nil).Once()
		txnRepo.On("SumSuccessDeltas", ctx, "M-001").Return(int64(440), nil).Once()

		result, err := service.RecomputeBalance(ctx, "M-001")
		require.NoError(t, err)
		assert.False(t, result.Corrected)
		assert.Equal(t, int64(440), result.Computed)

		memberRepo.AssertExpectations(t)
		txnRepo.AssertExpectations(t)
	})

	t.Run("gives up when balance keeps moving", func(t *testing.T) {
		memberRepo := new(MockBalanceRepository)
		txnRepo := new(MockDeltaRepository)
		service := NewReconcilerService(memberRepo, txnRepo)

		memberRepo.On("GetPoints", ctx, "M-001").Return(int64(500), nil)
		txnRepo.On("SumSuccessDeltas", ctx, "M-001").Return(int64(410), nil)
		memberRepo.On("SetPointsIf", ctx, "M-001", int64(500), int64(410)).Return(false, nil)

		_, err := service.RecomputeBalance(ctx, "M-001")
		assert.Error(t, err)
	})

	t.Run("member not found", func(t *testing.T) {
		memberRepo := new(MockBalanceRepository)
		txnRepo := new(MockDeltaRepository)
		service := NewReconcilerService(memberRepo, txnRepo)

		memberRepo.On("GetPoints", ctx, "M-404").Return(int64(0), repository.ErrMemberNotFound)

		_, err := service.RecomputeBalance(ctx, "M-404")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReconcilerService_MemberIDs(t *testing.T) {
	memberRepo := new(MockBalanceRepository)
	txnRepo := new(MockDeltaRepository)
	ctx := context.Background()

	service := NewReconcilerService(memberRepo, txnRepo)

	memberRepo.On("ListIDs", ctx, 100, 0).Return([]string{"M-001", "M-002"}, nil)

	ids, err := service.MemberIDs(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"M-001", "M-002"}, ids)
}
