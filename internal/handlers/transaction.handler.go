package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nuthan1805/loyalty-managemen/internal/model"
	xhttp "github.com/nuthan1805/loyalty-managemen/pkg/http"
)

type LedgerService interface {
	RecordTransaction(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error)
	History(ctx context.Context, memberID string, limit int) ([]*model.Transaction, int64, error)
}

type TransactionHandler struct {
	svc      LedgerService
	sessions SessionValidator
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.POST("/transactions", h.CreateTransaction)
	e.GET("/transactions/history/{member_id}", h.GetHistory)
}

func NewTransactionHandler(ledgerService LedgerService, sessions SessionValidator) *TransactionHandler {
	return &TransactionHandler{
		svc:      ledgerService,
		sessions: sessions,
	}
}

type createTransactionRequest struct {
	MemberID      string `json:"member_id"`
	Type          string `json:"type"`
	PointsUpdated int64  `json:"points_updated"`
	Description   string `json:"description"`
	UpdatedBy     string `json:"updated_by"`
}

// createTransactionResponse mirrors what the operation form expects: a
// status field, a message on rejection, the committed entry on success.
type createTransactionResponse struct {
	Status      string             `json:"status"`
	Message     string             `json:"message,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

type historyResponse struct {
	Items []*model.Transaction `json:"items"`
	Total int64                `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TransactionHandler) CreateTransaction(ctx *xhttp.RequestCtx) {
	s, ok := authorize(ctx, h.sessions)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	p := model.TransactionCreateRequest{
		MemberID:       req.MemberID,
		Type:           model.TransactionType(req.Type),
		PointsUpdated:  req.PointsUpdated,
		Description:    req.Description,
		UpdatedBy:      req.UpdatedBy,
		IdempotencyKey: string(ctx.Request.Header.Peek("Idempotency-Key")),
	}
	if p.UpdatedBy == "" {
		p.UpdatedBy = s.Actor
	}

	txn, err := h.svc.RecordTransaction(ctx, p)
	if err != nil {
		writeJSON(ctx, statusForError(err), createTransactionResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, createTransactionResponse{
		Status:      "success",
		Transaction: txn,
	})
}

func (h *TransactionHandler) GetHistory(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	items, total, err := h.svc.History(ctx, param(ctx, "member_id"), queryInt(ctx, "limit"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, historyResponse{Items: items, Total: total})
}
