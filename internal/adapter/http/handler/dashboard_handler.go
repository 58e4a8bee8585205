package handler

import (
	"goldpayments/internal/adapter/http/dto"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/apperror"
	"goldpayments/pkg/response"

	"github.com/gin-gonic/gin"
)

// DashboardHandler handles the home screen and transaction list.
type DashboardHandler struct {
	dashboardSvc ports.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardSvc ports.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// GetDashboard handles GET /api/v1/dashboard.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	sessionID, ok := authSession(c)
	if !ok {
		return
	}

	dashboard, err := h.dashboardSvc.GetDashboard(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewDashboardResponse(dashboard))
}

// ListTransactions handles GET /api/v1/transactions?limit=N.
func (h *DashboardHandler) ListTransactions(c *gin.Context) {
	sessionID, ok := authSession(c)
	if !ok {
		return
	}

	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txs, err := h.dashboardSvc.ListTransactions(c.Request.Context(), sessionID, q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txs))
	for i := range txs {
		items = append(items, dto.NewTransactionResponse(&txs[i], ""))
	}
	response.OK(c, dto.TransactionListResponse{Items: items, Count: len(items)})
}
