package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nuthan1805/loyalty-managemen/internal/model"
	"github.com/nuthan1805/loyalty-managemen/internal/repository"
)

type MemberRepository interface {
	Create(ctx context.Context, m *model.Member) (*model.Member, error)
	Get(ctx context.Context, memberID string) (*model.Member, error)
	Update(ctx context.Context, memberID string, p model.MemberUpdateRequest) (*model.Member, error)
	Delete(ctx context.Context, memberID string) error
	Search(ctx context.Context, f model.MemberFilter) ([]*model.Member, int64, error)
}

// TransactionCounter is the slice of the ledger the registry needs for its
// delete policy.
type TransactionCounter interface {
	CountByMember(ctx context.Context, memberID string) (int64, error)
}

// MemberService owns member identity. The cached balance is read through it
// but never written by it.
type MemberService struct {
	memberRepo      MemberRepository
	transactionRepo TransactionCounter
}

func NewMemberService(memberRepo MemberRepository, transactionRepo TransactionCounter) *MemberService {
	return &MemberService{
		memberRepo:      memberRepo,
		transactionRepo: transactionRepo,
	}
}

func (s *MemberService) Create(ctx context.Context, p model.MemberCreateRequest) (*model.Member, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	m := &model.Member{
		MemberID: strings.TrimSpace(p.MemberID),
		Name:     strings.TrimSpace(p.Name),
		Email:    strings.TrimSpace(p.Email),
		Points:   0,
	}

	created, err := s.memberRepo.Create(ctx, m)
	if err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			return nil, fmt.Errorf("%w: member_id %s already exists", ErrConflict, m.MemberID)
		}
		return nil, backendErr("create member", err)
	}
	return created, nil
}

func (s *MemberService) Get(ctx context.Context, memberID string) (*model.Member, error) {
	m, err := s.memberRepo.Get(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrNotFound
		}
		return nil, backendErr("get member", err)
	}
	return m, nil
}

func (s *MemberService) Update(ctx context.Context, memberID string, p model.MemberUpdateRequest) (*model.Member, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	m, err := s.memberRepo.Update(ctx, memberID, p)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrNotFound
		}
		return nil, backendErr("update member", err)
	}
	return m, nil
}

// Delete removes a member. Members with ledger history cannot be deleted;
// the ledger is permanent and must not be orphaned.
func (s *MemberService) Delete(ctx context.Context, memberID string) error {
	count, err := s.transactionRepo.CountByMember(ctx, memberID)
	if err != nil {
		return backendErr("count transactions", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: member %s has %d ledger entries", ErrConflict, memberID, count)
	}

	if err := s.memberRepo.Delete(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return ErrNotFound
		}
		return backendErr("delete member", err)
	}
	return nil
}

func (s *MemberService) Search(ctx context.Context, f model.MemberFilter) ([]*model.Member, int64, error) {
	return s.memberRepo.Search(ctx, f)
}

// Options lists members as {id, label} pairs for selection lists, labelled
// the way the operation form shows them.
func (s *MemberService) Options(ctx context.Context) ([]model.MemberOption, error) {
	members, _, err := s.memberRepo.Search(ctx, model.MemberFilter{Limit: 1000})
	if err != nil {
		return nil, err
	}
	options := make([]model.MemberOption, len(members))
	for i, m := range members {
		options[i] = model.MemberOption{
			ID:    m.MemberID,
			Label: fmt.Sprintf("%s - %s", m.MemberID, m.Name),
		}
	}
	return options, nil
}
