package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nuthan1805/loyalty-managemen/internal/services"
	xhttp "github.com/nuthan1805/loyalty-managemen/pkg/http"
)

type ReconcilerService interface {
	RecomputeBalance(ctx context.Context, memberID string) (*services.ReconcileResult, error)
}

type ReconcileHandler struct {
	svc      ReconcilerService
	sessions SessionValidator
}

func RegisterReconcileRoutes(e *router.Group, h *ReconcileHandler) {
	e.POST("/reconcile/{member_id}", h.Reconcile)
}

func NewReconcileHandler(reconcilerService ReconcilerService, sessions SessionValidator) *ReconcileHandler {
	return &ReconcileHandler{
		svc:      reconcilerService,
		sessions: sessions,
	}
}

// Reconcile checks a single member's cached balance against the ledger on
// demand, correcting it if the two disagree.
func (h *ReconcileHandler) Reconcile(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	result, err := h.svc.RecomputeBalance(ctx, param(ctx, "member_id"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, result)
}
