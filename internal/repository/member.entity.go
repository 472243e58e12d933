package repository

import (
	"time"

	"github.com/nuthan1805/loyalty-managemen/internal/model"
)

type MemberEntity struct {
	MemberID  string    `db:"member_id"  gorm:"primaryKey;column:member_id"`
	Name      string    `db:"name"       gorm:"column:name;not null"`
	Email     string    `db:"email"      gorm:"column:email;not null"`
	Points    int64     `db:"points"     gorm:"column:points;not null;default:0"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (MemberEntity) TableName() string {
	return "members"
}

func toMemberEntity(m *model.Member) *MemberEntity {
	if m == nil {
		return nil
	}
	return &MemberEntity{
		MemberID:  m.MemberID,
		Name:      m.Name,
		Email:     m.Email,
		Points:    m.Points,
		CreatedAt: m.CreatedAt,
	}
}

func toMemberModel(e *MemberEntity) *model.Member {
	if e == nil {
		return nil
	}
	return &model.Member{
		MemberID:  e.MemberID,
		Name:      e.Name,
		Email:     e.Email,
		Points:    e.Points,
		CreatedAt: e.CreatedAt,
	}
}

func toMemberModels(entities []*MemberEntity) []*model.Member {
	if entities == nil {
		return nil
	}
	models := make([]*model.Member, len(entities))
	for i, e := range entities {
		models[i] = toMemberModel(e)
	}
	return models
}
