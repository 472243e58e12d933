package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nuthan1805/loyalty-managemen/internal/model"
	"github.com/nuthan1805/loyalty-managemen/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrTransactionNotFound is returned when a ledger entry does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// TransactionRepository persists the append-only points ledger. There are no
// update or delete methods on purpose.
type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

// ListByMember returns a member's ledger entries, most recent first.
func (r *TransactionRepository) ListByMember(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("member_id = ?", f.MemberID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 5
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*TransactionEntity
	err := q.Order("updated_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entities).
		Error
	if err != nil {
		return nil, 0, err
	}

	return toTransactionModels(entities), total, nil
}

func (r *TransactionRepository) CountByMember(ctx context.Context, memberID string) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("member_id = ?", memberID).
		Count(&total).
		Error
	return total, err
}

// SumSuccessDeltas computes the ledger-derived balance for one member:
// credits count positive, debits negative, error entries not at all.
func (r *TransactionRepository) SumSuccessDeltas(ctx context.Context, memberID string) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN -points_updated ELSE points_updated END), 0)", string(model.TransactionDebit)).
		Where("member_id = ? AND status = ?", memberID, string(model.TransactionSuccess)).
		Scan(&total).
		Error
	return total, err
}

// DeltaRow is one success entry reduced to what trend grouping needs.
type DeltaRow struct {
	UpdatedAt time.Time
	Delta     int64
}

// SuccessDeltas streams every success entry's time and signed delta in
// ascending time order.
func (r *TransactionRepository) SuccessDeltas(ctx context.Context) ([]DeltaRow, error) {
	var rows []DeltaRow
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Select("updated_at, CASE WHEN type = ? THEN -points_updated ELSE points_updated END AS delta", string(model.TransactionDebit)).
		Where("status = ?", string(model.TransactionSuccess)).
		Order("updated_at ASC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
