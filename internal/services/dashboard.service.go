package services

import (
	"context"
	"sort"
	"time"

	"github.com/nuthan1805/loyalty-managemen/internal/model"
	"github.com/nuthan1805/loyalty-managemen/internal/repository"
)

type DashboardMemberRepository interface {
	Count(ctx context.Context) (int64, error)
	SumPoints(ctx context.Context) (int64, error)
	TopByPoints(ctx context.Context, n int) ([]*model.Member, error)
	RegistrationTimes(ctx context.Context) ([]time.Time, error)
}

type DashboardTransactionRepository interface {
	SuccessDeltas(ctx context.Context) ([]repository.DeltaRow, error)
}

// DashboardService computes read-side projections over the registry and the
// ledger. Everything is recomputed per call from the current snapshot; no
// aggregate state is persisted. Views may lag in-flight writes, which is fine
// for dashboard reads.
type DashboardService struct {
	memberRepo      DashboardMemberRepository
	transactionRepo DashboardTransactionRepository
	topLimit        int
}

func NewDashboardService(memberRepo DashboardMemberRepository, transactionRepo DashboardTransactionRepository, topLimit int) *DashboardService {
	if topLimit <= 0 {
		topLimit = 5
	}
	return &DashboardService{
		memberRepo:      memberRepo,
		transactionRepo: transactionRepo,
		topLimit:        topLimit,
	}
}

func (s *DashboardService) TotalPoints(ctx context.Context) (int64, error) {
	return s.memberRepo.SumPoints(ctx)
}

func (s *DashboardService) TotalMembers(ctx context.Context) (int64, error) {
	return s.memberRepo.Count(ctx)
}

func (s *DashboardService) TopMembers(ctx context.Context, n int) ([]*model.Member, error) {
	if n <= 0 {
		n = s.topLimit
	}
	return s.memberRepo.TopByPoints(ctx, n)
}

func (s *DashboardService) Summary(ctx context.Context) (*model.DashboardSummary, error) {
	totalPoints, err := s.memberRepo.SumPoints(ctx)
	if err != nil {
		return nil, err
	}
	totalMembers, err := s.memberRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.memberRepo.TopByPoints(ctx, s.topLimit)
	if err != nil {
		return nil, err
	}
	return &model.DashboardSummary{
		TotalPoints:  totalPoints,
		TotalMembers: totalMembers,
		TopMembers:   top,
	}, nil
}

// TransactionTrend buckets success entries by the server's local calendar
// date, summing signed deltas per day, ascending by date.
func (s *DashboardService) TransactionTrend(ctx context.Context) ([]model.TrendPoint, error) {
	rows, err := s.transactionRepo.SuccessDeltas(ctx)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]int64, len(rows))
	for _, row := range rows {
		buckets[localDate(row.UpdatedAt)] += row.Delta
	}
	return sortedTrend(buckets), nil
}

// MemberTrend buckets registrations per local calendar date, ascending.
func (s *DashboardService) MemberTrend(ctx context.Context) ([]model.TrendPoint, error) {
	times, err := s.memberRepo.RegistrationTimes(ctx)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]int64, len(times))
	for _, t := range times {
		buckets[localDate(t)]++
	}
	return sortedTrend(buckets), nil
}

func localDate(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

func sortedTrend(buckets map[string]int64) []model.TrendPoint {
	points := make([]model.TrendPoint, 0, len(buckets))
	for date, value := range buckets {
		points = append(points, model.TrendPoint{Date: date, Value: value})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}
