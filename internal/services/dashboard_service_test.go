package services

import (
	"context"
	"testing"
	"time"

	"github.com/nuthan1805/loyalty-managemen/internal/model"
	"github.com/nuthan1805/loyalty-managemen/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAggregateMemberRepository struct {
	mock.Mock
}

func (m *MockAggregateMemberRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAggregateMemberRepository) SumPoints(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAggregateMemberRepository) TopByPoints(ctx context.Context, n int) ([]*model.Member, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Member), args.Error(1)
}

func (m *MockAggregateMemberRepository) RegistrationTimes(ctx context.Context) ([]time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

type MockAggregateTransactionRepository struct {
	mock.Mock
}

func (m *MockAggregateTransactionRepository) SuccessDeltas(ctx context.Context) ([]repository.DeltaRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.DeltaRow), args.Error(1)
}

func TestDashboardService_Summary(t *testing.T) {
	memberRepo := new(MockAggregateMemberRepository)
	txnRepo := new(MockAggregateTransactionRepository)
	ctx := context.Background()

	service := NewDashboardService(memberRepo, txnRepo, 3)

	top := []*model.Member{
		{MemberID: "M-002", Points: 1200},
		{MemberID: "M-001", Points: 500},
	}
	memberRepo.On("SumPoints", ctx).Return(int64(1750), nil)
	memberRepo.On("Count", ctx).Return(int64(3), nil)
	memberRepo.On("TopByPoints", ctx, 3).Return(top, nil)

	summary, err := service.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1750), summary.TotalPoints)
	assert.Equal(t, int64(3), summary.TotalMembers)
	assert.Equal(t, top, summary.TopMembers)
}

func TestDashboardService_TransactionTrend(t *testing.T) {
	memberRepo := new(MockAggregateMemberRepository)
	txnRepo := new(MockAggregateTransactionRepository)
	ctx := context.Background()

	service := NewDashboardService(memberRepo, txnRepo, 5)

	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	day2 := time.Date(2024, 3, 2, 9, 0, 0, 0, time.Local)
	txnRepo.On("SuccessDeltas", ctx).Return([]repository.DeltaRow{
		{UpdatedAt: day1, Delta: 100},
		{UpdatedAt: day1.Add(2 * time.Hour), Delta: -40},
		{UpdatedAt: day2, Delta: 30},
	}, nil)

	trend, err := service.TransactionTrend(ctx)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, "2024-03-01", trend[0].Date)
	assert.Equal(t, int64(60), trend[0].Value)
	assert.Equal(t, "2024-03-02", trend[1].Date)
	assert.Equal(t, int64(30), trend[1].Value)
}

func TestDashboardService_MemberTrend(t *testing.T) {
	memberRepo := new(MockAggregateMemberRepository)
	txnRepo := new(MockAggregateTransactionRepository)
	ctx := context.Background()

	service := NewDashboardService(memberRepo, txnRepo, 5)

	day1 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)
	day3 := time.Date(2024, 3, 3, 17, 0, 0, 0, time.Local)
	memberRepo.On("RegistrationTimes", ctx).Return([]time.Time{
		day1, day1.Add(time.Hour), day3,
	}, nil)

	trend, err := service.MemberTrend(ctx)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, "2024-03-01", trend[0].Date)
	assert.Equal(t, int64(2), trend[0].Value)
	assert.Equal(t, "2024-03-03", trend[1].Date)
	assert.Equal(t, int64(1), trend[1].Value)
}

func TestDashboardService_EmptyState(t *testing.T) {
	memberRepo := new(MockAggregateMemberRepository)
	txnRepo := new(MockAggregateTransactionRepository)
	ctx := context.Background()

	service := NewDashboardService(memberRepo, txnRepo, 5)

	memberRepo.On("SumPoints", ctx).Return(int64(0), nil)
	memberRepo.On("Count", ctx).Return(int64(0), nil)
	memberRepo.On("TopByPoints", ctx, 5).Return([]*model.Member{}, nil)
	txnRepo.On("SuccessDeltas", ctx).Return([]repository.DeltaRow{}, nil)

	summary, err := service.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalPoints)
	assert.Empty(t, summary.TopMembers)

	trend, err := service.TransactionTrend(ctx)
	require.NoError(t, err)
	assert.Empty(t, trend)
}
