package handler

import (
	"goldpayments/internal/adapter/http/dto"
	"goldpayments/internal/adapter/http/middleware"
	"goldpayments/internal/core/ports"
	"goldpayments/pkg/apperror"
	"goldpayments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler serves the lock gate.
type SessionHandler struct {
	sessionSvc ports.SessionService
}

func NewSessionHandler(sessionSvc ports.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Open handles POST /api/v1/sessions.
func (h *SessionHandler) Open(c *gin.Context) {
	session, err := h.sessionSvc.Open(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxSessionID, session.ID)
	c.Set(middleware.CtxResourceID, session.ID.String())
	response.Created(c, dto.NewSessionResponse(session))
}

// Get handles GET /api/v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionParam(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewSessionResponse(session))
}

// Scan handles POST /api/v1/sessions/:id/scan. The request blocks for the
// length of the simulated scan.
func (h *SessionHandler) Scan(c *gin.Context) {
	id, ok := sessionParam(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.Scan(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxSessionID, id)
	response.OK(c, dto.ScanResponse{
		Session:    dto.NewSessionResponse(result.Session),
		Token:      result.Token,
		Expiry:     result.ExpiresAt.Unix(),
		CameraLive: result.CameraLive,
	})
}

func sessionParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrSessionNotFound())
		return uuid.Nil, false
	}
	return id, true
}

// authSession returns the session JWTAuth admitted. Routes without the
// middleware get SESSION_005.
func authSession(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.SessionID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}
