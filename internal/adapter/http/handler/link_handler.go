package handler

import (
	"context"
	"errors"
	"net/http"

	"goldpayments/internal/adapter/http/dto"
	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/apperror"
	"goldpayments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LinkHandler drives the account-linking wizard.
type LinkHandler struct {
	linkSvc ports.LinkService
}

func NewLinkHandler(linkSvc ports.LinkService) *LinkHandler {
	return &LinkHandler{linkSvc: linkSvc}
}

// ListInstitutions handles GET /api/v1/link/institutions?q=.
func (h *LinkHandler) ListInstitutions(c *gin.Context) {
	var q dto.InstitutionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	response.OK(c, dto.InstitutionListResponse{Items: h.linkSvc.ListInstitutions(q.Q)})
}

// Start handles POST /api/v1/link/flows.
func (h *LinkHandler) Start(c *gin.Context) {
	sessionID, ok := authSession(c)
	if !ok {
		return
	}

	flow, err := h.linkSvc.Start(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewFlowResponse(flow))
}

// Advance handles POST /api/v1/link/flows/:id/advance.
func (h *LinkHandler) Advance(c *gin.Context) {
	h.transition(c, h.linkSvc.Advance)
}

// Cancel handles POST /api/v1/link/flows/:id/cancel.
func (h *LinkHandler) Cancel(c *gin.Context) {
	h.transition(c, h.linkSvc.Cancel)
}

// SelectInstitution handles POST /api/v1/link/flows/:id/institution.
func (h *LinkHandler) SelectInstitution(c *gin.Context) {
	var req dto.SelectInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	sessionID, flowID, ok := flowParams(c)
	if !ok {
		return
	}

	flow, err := h.linkSvc.SelectInstitution(c.Request.Context(), sessionID, flowID, req.Institution)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewFlowResponse(flow))
}

// Finalize handles POST /api/v1/link/flows/:id/finalize.
func (h *LinkHandler) Finalize(c *gin.Context) {
	sessionID, flowID, ok := flowParams(c)
	if !ok {
		return
	}

	result, err := h.linkSvc.Finalize(c.Request.Context(), sessionID, flowID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.FinalizeResponse{Flow: dto.NewFlowResponse(result.Flow)}
	if sync := result.Sync; sync != nil {
		resp.Notice = sync.Notice
		if sync.Wallet != nil {
			resp.Wallet = dto.NewWalletResponse(sync.Wallet, "")
		}
		if sync.Transaction != nil {
			resp.Transaction = dto.NewTransactionResponse(sync.Transaction, "")
		}
	}
	response.OK(c, resp)
}

type flowTransition func(ctx context.Context, sessionID, flowID uuid.UUID) (*domain.LinkFlow, error)

func (h *LinkHandler) transition(c *gin.Context, fn flowTransition) {
	sessionID, flowID, ok := flowParams(c)
	if !ok {
		return
	}

	flow, err := fn(c.Request.Context(), sessionID, flowID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewFlowResponse(flow))
}

// bindError maps a body that tripped the size limit to 413 and anything else
// to a validation error.
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrPayloadTooLarge()
	}
	return apperror.Validation(err.Error())
}

func flowParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sessionID, ok := authSession(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	flowID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrFlowNotFound())
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, flowID, true
}
