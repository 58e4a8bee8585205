package handler

import (
	"goldpayments/internal/adapter/http/dto"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdviceHandler serves the advice panel.
type AdviceHandler struct {
	adviceSvc ports.AdviceService
}

func NewAdviceHandler(adviceSvc ports.AdviceService) *AdviceHandler {
	return &AdviceHandler{adviceSvc: adviceSvc}
}

// GetAdvice handles POST /api/v1/advice. Generator failures come back as
// fallback text with a 200, not as errors.
func (h *AdviceHandler) GetAdvice(c *gin.Context) {
	sessionID, ok := authSession(c)
	if !ok {
		return
	}

	advice, err := h.adviceSvc.GetAdvice(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAdviceResponse(advice))
}
