package model

import (
	"errors"
	"strings"
	"time"
)

// Member is a rewards-program member. Points is the cached balance; it is
// derivable from the transaction ledger and must only change through a
// successful ledger append or a reconciler correction.
type Member struct {
	MemberID  string    `json:"member_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberCreateRequest is the input for registering a member.
type MemberCreateRequest struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

func (p MemberCreateRequest) Validate() error {
	if strings.TrimSpace(p.MemberID) == "" {
		return errors.New("member_id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}

// MemberUpdateRequest carries the editable fields. Points is deliberately
// absent: balance changes go through the ledger only.
type MemberUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (p MemberUpdateRequest) Validate() error {
	if p.Name == nil && p.Email == nil {
		return errors.New("nothing to update")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if p.Email != nil && strings.TrimSpace(*p.Email) == "" {
		return errors.New("email cannot be empty")
	}
	return nil
}

// MemberFilter controls Search/List queries.
type MemberFilter struct {
	Query  string // case-insensitive substring over name or member_id
	Limit  int    // default 50
	Offset int
}

// MemberOption is the typed {id, label} pair exposed to callers that render
// selection lists.
type MemberOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
