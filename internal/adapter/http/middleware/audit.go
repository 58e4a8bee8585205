package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"goldpayments/internal/core/domain"
	"goldpayments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful state-changing requests after they complete.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 || c.Request.Method != http.MethodPost {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath())
		if action == "" {
			return
		}

		var sessionID *uuid.UUID
		if id, ok := SessionID(c); ok {
			sessionID = &id
		}

		resourceID := c.Param("id")
		if v, ok := c.Get(CtxResourceID); ok {
			if s, ok := v.(string); ok {
				resourceID = s
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			SessionID:    sessionID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

// mapRouteToAction matches the registered route pattern, so path
// parameters do not matter.
func mapRouteToAction(route string) (domain.AuditAction, string) {
	switch route {
	case "/api/v1/sessions":
		return domain.AuditActionSessionOpen, "session"
	case "/api/v1/sessions/:id/scan":
		return domain.AuditActionSessionUnlock, "session"
	case "/api/v1/link/flows/:id/finalize":
		return domain.AuditActionLinkComplete, "link_flow"
	case "/api/v1/link/flows/:id/cancel":
		return domain.AuditActionLinkCancel, "link_flow"
	case "/api/v1/advice":
		return domain.AuditActionAdviceRequest, "advice"
	}
	return "", ""
}
