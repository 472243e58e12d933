package repository

import (
	"time"

	"github.com/nuthan1805/loyalty-managemen/internal/model"
)

type TransactionEntity struct {
	ID            string    `db:"id"             gorm:"primaryKey;column:id"`
	MemberID      string    `db:"member_id"      gorm:"column:member_id;not null;index"`
	Name          string    `db:"name"           gorm:"column:name;not null"`
	PointsUpdated int64     `db:"points_updated" gorm:"column:points_updated;not null"`
	Type          string    `db:"type"           gorm:"column:type;not null"`
	Description   string    `db:"description"    gorm:"column:description"`
	UpdatedBy     string    `db:"updated_by"     gorm:"column:updated_by;not null"`
	Status        string    `db:"status"         gorm:"column:status;not null;index"`
	UpdatedAt     time.Time `db:"updated_at"     gorm:"column:updated_at;index"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:            m.ID,
		MemberID:      m.MemberID,
		Name:          m.Name,
		PointsUpdated: m.PointsUpdated,
		Type:          string(m.Type),
		Description:   m.Description,
		UpdatedBy:     m.UpdatedBy,
		Status:        string(m.Status),
		UpdatedAt:     m.UpdatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:            e.ID,
		MemberID:      e.MemberID,
		Name:          e.Name,
		PointsUpdated: e.PointsUpdated,
		Type:          model.TransactionType(e.Type),
		Description:   e.Description,
		UpdatedBy:     e.UpdatedBy,
		Status:        model.TransactionStatus(e.Status),
		UpdatedAt:     e.UpdatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
