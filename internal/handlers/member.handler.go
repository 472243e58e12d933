package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nuthan1805/loyalty-managemen/internal/model"
	xhttp "github.com/nuthan1805/loyalty-managemen/pkg/http"
)

type MemberService interface {
	Create(ctx context.Context, p model.MemberCreateRequest) (*model.Member, error)
	Get(ctx context.Context, memberID string) (*model.Member, error)
	Update(ctx context.Context, memberID string, p model.MemberUpdateRequest) (*model.Member, error)
	Delete(ctx context.Context, memberID string) error
	Search(ctx context.Context, f model.MemberFilter) ([]*model.Member, int64, error)
	Options(ctx context.Context) ([]model.MemberOption, error)
}

type MemberHandler struct {
	svc      MemberService
	sessions SessionValidator
}

func RegisterMemberRoutes(e *router.Group, h *MemberHandler) {
	e.POST("/members", h.CreateMember)
	e.GET("/members", h.ListMembers)
	e.GET("/members/options", h.ListMemberOptions)
	e.GET("/members/{id}", h.GetMember)
	e.PUT("/members/{id}", h.UpdateMember)
	e.DELETE("/members/{id}", h.DeleteMember)
}

func NewMemberHandler(memberService MemberService, sessions SessionValidator) *MemberHandler {
	return &MemberHandler{
		svc:      memberService,
		sessions: sessions,
	}
}

type listMembersResponse struct {
	Items []*model.Member `json:"items"`
	Total int64           `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *MemberHandler) CreateMember(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	var req model.MemberCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	member, err := h.svc.Create(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, member)
}

func (h *MemberHandler) ListMembers(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	f := model.MemberFilter{
		Query:  query(ctx, "q"),
		Limit:  queryInt(ctx, "limit"),
		Offset: queryInt(ctx, "offset"),
	}

	items, total, err := h.svc.Search(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listMembersResponse{Items: items, Total: total})
}

func (h *MemberHandler) ListMemberOptions(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	options, err := h.svc.Options(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, options)
}

func (h *MemberHandler) GetMember(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	member, err := h.svc.Get(ctx, param(ctx, "id"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, member)
}

func (h *MemberHandler) UpdateMember(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	var req model.MemberUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	member, err := h.svc.Update(ctx, param(ctx, "id"), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, member)
}

func (h *MemberHandler) DeleteMember(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	if err := h.svc.Delete(ctx, param(ctx, "id")); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "deleted"})
}
