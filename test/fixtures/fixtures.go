package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/nuthan1805/loyalty-managemen/internal/model"
)

var (
	TestMember1 = model.Member{
		MemberID: "M-001",
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		Points:   1000,
	}

	TestMember2 = model.Member{
		MemberID: "M-002",
		Name:     "Ben Ortiz",
		Email:    "ben@example.com",
		Points:   500,
	}

	TestMemberLowBalance = model.Member{
		MemberID: "M-003",
		Name:     "Bharti Shah",
		Email:    "bharti@example.com",
		Points:   1,
	}

	TestMemberZeroBalance = model.Member{
		MemberID: "M-004",
		Name:     "Chen Wu",
		Email:    "chen@example.com",
		Points:   0,
	}
)

func NewTestMember(id, name, email string) *model.Member {
	return &model.Member{
		MemberID:  id,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now(),
	}
}

func NewTestMemberCreateRequest(id, name, email string) model.MemberCreateRequest {
	return model.MemberCreateRequest{
		MemberID: id,
		Name:     name,
		Email:    email,
	}
}

func NewTestTransaction(memberID string, typ model.TransactionType, amount int64) *model.Transaction {
	return &model.Transaction{
		ID:            uuid.NewString(),
		MemberID:      memberID,
		PointsUpdated: amount,
		Type:          typ,
		UpdatedBy:     "admin",
		Status:        model.TransactionSuccess,
		UpdatedAt:     time.Now(),
	}
}

func NewTestTransactionCreateRequest(memberID string, typ model.TransactionType, amount int64) model.TransactionCreateRequest {
	return model.TransactionCreateRequest{
		MemberID:      memberID,
		Type:          typ,
		PointsUpdated: amount,
		Description:   "test movement",
		UpdatedBy:     "admin",
	}
}
