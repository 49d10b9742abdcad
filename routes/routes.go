package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omnilead-server/database"
	"omnilead-server/middleware"
	"omnilead-server/models"
	"omnilead-server/services"
	ws "omnilead-server/websocket"
)

// Syncer replays fallback records into the primary store.
type Syncer interface {
	SyncAll(ctx context.Context) (map[models.Kind]int, error)
}

// Handler carries the services every route needs.
type Handler struct {
	Directory *services.Directory
	Leads     *services.LeadRouter
	Reviews   *services.ReviewDesk
	Messages  *services.MessageLog
	Catalog   *services.Catalog
	Analytics *services.Analytics
	Activity  *services.ActivityLog
	Sessions  *services.JWTService
	Syncer    Syncer
	Hub       *ws.Hub
	Logger    *zap.Logger

	AdminEmail    string
	AdminPassword string

	// UploadDir is served under UploadPublicBase when set.
	UploadDir        string
	UploadPublicBase string
}

// SetupRoutes registers every API route on router.
func SetupRoutes(router *gin.Engine, h *Handler) {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}

	router.GET("/health", health)
	if h.UploadDir != "" && h.UploadPublicBase != "" {
		router.Static(h.UploadPublicBase, h.UploadDir)
	}

	api := router.Group("/api")
	{
		api.GET("/health", health)

		api.POST("/lead", h.submitLead)
		api.POST("/message", h.postMessage)
		api.POST("/review", h.submitReview)
		api.GET("/reviews", h.listReviews)
		api.GET("/services", h.listServices)

		api.POST("/contractor", h.registerContractor)
		api.POST("/contractor/login", h.contractorLogin)
		api.GET("/contractors", h.listContractors)
		api.GET("/contractor/:id", h.getContractor)

		api.POST("/admin/login", h.adminLogin)
	}

	contractor := api.Group("/contractor")
	contractor.Use(middleware.ContractorAuth(h.Sessions))
	{
		contractor.GET("/leads", h.contractorLeads)
		contractor.PUT("/profile", h.updateProfile)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminAuth(h.Sessions))
	{
		admin.POST("/apply-badge", h.applyBadge)
		admin.GET("/leads", h.listLeads)
		admin.DELETE("/lead/:id", h.deleteLead)
		admin.DELETE("/contractor/:id", h.deleteContractor)

		admin.POST("/admin/contractors", h.createContractor)
		admin.PATCH("/admin/contractors/:id/verify", h.verifyContractor)
		admin.PATCH("/admin/contractors/:id/block", h.blockContractor)
		admin.POST("/admin/contractors/:id/message", h.messageContractor)
		admin.PATCH("/admin/leads/:id", h.updateLead)
		admin.GET("/admin/reviews", h.adminReviews)
		admin.PATCH("/admin/reviews/:id", h.moderateReview)
		admin.GET("/admin/messages", h.adminMessages)
		admin.POST("/admin/blocks", h.addBlock)
		admin.GET("/admin/analytics", h.analytics)
		admin.GET("/admin/logs/:name", h.logs)
		admin.POST("/admin/sync", h.sync)
		admin.GET("/admin/ws", h.liveFeed)
	}
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// respondError maps domain errors onto status codes and the error envelope.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *services.ValidationError
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, verr.Error()
	case errors.Is(err, services.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrBlocked):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, database.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, services.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, database.ErrUnavailable):
		status, msg = http.StatusServiceUnavailable, "storage unavailable, please retry"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

// sessionCookie mirrors a freshly issued token into the cookie the auth
// middleware reads, so browser clients need not keep it themselves.
func sessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	secure := gin.Mode() == gin.ReleaseMode || c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", secure, true)
}

// record adds a successful admin change to the activity log.
func (h *Handler) record(c *gin.Context, action, targetID, details string) {
	var actor string
	if claims := middleware.ClaimsFrom(c); claims != nil {
		actor = claims.Subject
	}
	h.Activity.Record(c.Request.Context(), actor, action, targetID, details)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "invalid request body",
		})
		return false
	}
	return true
}
