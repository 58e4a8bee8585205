package handler

import (
	"goldpayments/internal/adapter/http/middleware"
	"goldpayments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies; the largest one is an institution name.
const maxBodyBytes = 64 << 10

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SessionSvc     ports.SessionService
	DashboardSvc   ports.DashboardService
	LinkSvc        ports.LinkService
	AdviceSvc      ports.AdviceService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- The gate (no auth) ---
	sessionHandler := NewSessionHandler(deps.SessionSvc)
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", rl("open"), sessionHandler.Open)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.POST("/:id/scan", rl("scan"), sessionHandler.Scan)
	}

	// --- Behind the gate (session JWT) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	dashboardHandler := NewDashboardHandler(deps.DashboardSvc)
	v1.GET("/dashboard", jwtAuth, dashboardHandler.GetDashboard)
	v1.GET("/transactions", jwtAuth, dashboardHandler.ListTransactions)

	linkHandler := NewLinkHandler(deps.LinkSvc)
	link := v1.Group("/link", jwtAuth)
	{
		link.GET("/institutions", linkHandler.ListInstitutions)
		link.POST("/flows", linkHandler.Start)
		link.POST("/flows/:id/advance", linkHandler.Advance)
		link.POST("/flows/:id/institution", linkHandler.SelectInstitution)
		link.POST("/flows/:id/finalize", rl("finalize"), linkHandler.Finalize)
		link.POST("/flows/:id/cancel", linkHandler.Cancel)
	}

	adviceHandler := NewAdviceHandler(deps.AdviceSvc)
	v1.POST("/advice", jwtAuth, rl("advice"), adviceHandler.GetAdvice)

	return r
}
