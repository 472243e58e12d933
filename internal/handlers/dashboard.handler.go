package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nuthan1805/loyalty-managemen/internal/model"
	xhttp "github.com/nuthan1805/loyalty-managemen/pkg/http"
)

type DashboardService interface {
	Summary(ctx context.Context) (*model.DashboardSummary, error)
	TransactionTrend(ctx context.Context) ([]model.TrendPoint, error)
	MemberTrend(ctx context.Context) ([]model.TrendPoint, error)
}

type DashboardHandler struct {
	svc      DashboardService
	sessions SessionValidator
}

func RegisterDashboardRoutes(e *router.Group, h *DashboardHandler) {
	e.GET("/dashboard/summary", h.GetSummary)
	e.GET("/dashboard/trends/transactions", h.GetTransactionTrend)
	e.GET("/dashboard/trends/members", h.GetMemberTrend)
}

func NewDashboardHandler(dashboardService DashboardService, sessions SessionValidator) *DashboardHandler {
	return &DashboardHandler{
		svc:      dashboardService,
		sessions: sessions,
	}
}

func (h *DashboardHandler) GetSummary(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	summary, err := h.svc.Summary(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, summary)
}

func (h *DashboardHandler) GetTransactionTrend(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	trend, err := h.svc.TransactionTrend(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, trend)
}

func (h *DashboardHandler) GetMemberTrend(ctx *xhttp.RequestCtx) {
	if _, ok := authorize(ctx, h.sessions); !ok {
		return
	}

	trend, err := h.svc.MemberTrend(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, trend)
}
