package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nuthan1805/loyalty-managemen/internal/model"
	"github.com/nuthan1805/loyalty-managemen/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberExists        = errors.New("member already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConcurrentUpdate    = errors.New("concurrent update detected")
	ErrMaxRetriesExceeded  = errors.New("max retries exceeded")
)

type MemberRepository struct {
	*pg.DB
}

func NewMemberRepository(db *pg.DB) *MemberRepository {
	return &MemberRepository{
		db,
	}
}

func (r *MemberRepository) Create(ctx context.Context, m *model.Member) (*model.Member, error) {
	entity := toMemberEntity(m)

	var existing MemberEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("member_id = ?", entity.MemberID).
		First(&existing).
		Error
	if err == nil {
		return nil, ErrMemberExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrMemberExists
		}
		return nil, err
	}

	return toMemberModel(entity), nil
}

func (r *MemberRepository) Get(ctx context.Context, memberID string) (*model.Member, error) {
	var entity MemberEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("member_id = ?", memberID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return toMemberModel(&entity), nil
}

// Update edits name and email only. Points never changes here; the ledger and
// the reconciler are the only writers of the cached balance.
func (r *MemberRepository) Update(ctx context.Context, memberID string, p model.MemberUpdateRequest) (*model.Member, error) {
	updates := map[string]interface{}{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Email != nil {
		updates["email"] = *p.Email
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Where("member_id = ?", memberID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrMemberNotFound
	}

	return r.Get(ctx, memberID)
}

func (r *MemberRepository) Delete(ctx context.Context, memberID string) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("member_id = ?", memberID).
		Delete(&MemberEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// Search matches the query as a case-insensitive substring of name or
// member_id. An empty query lists everyone.
func (r *MemberRepository) Search(ctx context.Context, f model.MemberFilter) ([]*model.Member, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&MemberEntity{})

	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(member_id) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*MemberEntity
	if err := q.Order("created_at ASC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toMemberModels(entities), total, nil
}

// ListIDs pages over every member_id, oldest first. The reconciler sweep
// walks the registry with it.
func (r *MemberRepository) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	if limit <= 0 {
		limit = 200
	}
	var ids []string
	err := r.Read(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Pluck("member_id", &ids).
		Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CreditPoints atomically adds amount to the cached balance, retrying on
// transient conflicts.
func (r *MemberRepository) CreditPoints(ctx context.Context, memberID string, amount int64) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := r.creditAttempt(ctx, memberID, amount)

		if err == nil {
			return nil
		}

		if errors.Is(err, ErrMemberNotFound) {
			return err
		}

		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *MemberRepository) creditAttempt(ctx context.Context, memberID string, amount int64) error {
	var entity MemberEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ?", memberID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Where("member_id = ?", memberID).
		Update("points", gorm.Expr("points + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// DebitPoints atomically subtracts amount from the cached balance. A debit
// that would drive the balance below zero fails with ErrInsufficientBalance
// and leaves the row untouched.
func (r *MemberRepository) DebitPoints(ctx context.Context, memberID string, amount int64) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := r.debitAttempt(ctx, memberID, amount)

		if err == nil {
			return nil
		}

		// permanent outcomes pass straight through
		if errors.Is(err, ErrMemberNotFound) || errors.Is(err, ErrInsufficientBalance) {
			return err
		}

		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *MemberRepository) debitAttempt(ctx context.Context, memberID string, amount int64) error {
	var entity MemberEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ?", memberID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}

	if entity.Points < amount {
		return ErrInsufficientBalance
	}

	// The points >= ? guard keeps the invariant even if the row lock was
	// bypassed by a concurrent writer between the read and this update.
	result := r.Write(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Where("member_id = ? AND points >= ?", memberID, amount).
		Update("points", gorm.Expr("points - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	return nil
}

// SetPointsIf overwrites the cached balance only while it still holds the
// expected value. The reconciler uses it so an in-flight writer invalidates
// the correction instead of being clobbered by it.
func (r *MemberRepository) SetPointsIf(ctx context.Context, memberID string, expected, computed int64) (bool, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Where("member_id = ? AND points = ?", memberID, expected).
		Update("points", computed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *MemberRepository) GetPoints(ctx context.Context, memberID string) (int64, error) {
	var entity MemberEntity
	err := r.Read(ctx).WithContext(ctx).
		Select("points").
		Where("member_id = ?", memberID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMemberNotFound
		}
		return 0, err
	}
	return entity.Points, nil
}

func (r *MemberRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Count(&total).
		Error
	return total, err
}

func (r *MemberRepository) SumPoints(ctx context.Context) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).
		Error
	return total, err
}

// TopByPoints returns the n highest balances, ties broken by earliest
// registration.
func (r *MemberRepository) TopByPoints(ctx context.Context, n int) ([]*model.Member, error) {
	if n <= 0 {
		n = 5
	}
	var entities []*MemberEntity
	err := r.Read(ctx).WithContext(ctx).
		Order("points DESC, created_at ASC").
		Limit(n).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toMemberModels(entities), nil
}

// RegistrationTimes streams every member's created_at for the registration
// trend.
func (r *MemberRepository) RegistrationTimes(ctx context.Context) ([]time.Time, error) {
	var times []time.Time
	err := r.Read(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Order("created_at ASC").
		Pluck("created_at", &times).
		Error
	if err != nil {
		return nil, err
	}
	return times, nil
}
