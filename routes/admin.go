package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omnilead-server/middleware"
	"omnilead-server/services"
	"omnilead-server/types"
	"omnilead-server/utils"
	ws "omnilead-server/websocket"
)

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// adminLogin issues an admin session for the configured credentials.
func (h *Handler) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.AdminEmail == "" || h.AdminPassword == "" {
		respondError(c, h.Logger, fmt.Errorf("%w: admin login is disabled", services.ErrUnauthorized))
		return
	}

	emailOK := utils.SecureCompare(utils.NormalizeEmail(req.Email), utils.NormalizeEmail(h.AdminEmail))
	passwordOK := utils.SecureCompare(req.Password, h.AdminPassword)
	if !emailOK || !passwordOK {
		h.Logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		respondError(c, h.Logger, fmt.Errorf("%w: invalid credentials", services.ErrUnauthorized))
		return
	}

	email := utils.NormalizeEmail(h.AdminEmail)
	token, expiresAt, err := h.Sessions.Issue(types.RoleAdmin, email, email)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	sessionCookie(c, token, expiresAt)
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// logs serves the admin activity log or the bot delivery history.
func (h *Handler) logs(c *gin.Context) {
	entries, err := h.Activity.Entries(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "records": entries})
}

func (h *Handler) analytics(c *gin.Context) {
	report, err := h.Analytics.Report(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"totals":          report.Totals,
		"series":          report.Series,
		"leads_by_status": report.ByStatus,
	})
}

// sync replays fallback files now instead of waiting for the job.
func (h *Handler) sync(c *gin.Context) {
	counts, err := h.Syncer.SyncAll(c.Request.Context())
	if err != nil {
		h.Logger.Warn("manual sync incomplete", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"ok":     false,
			"error":  "sync incomplete, primary store unreachable",
			"synced": counts,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "synced": counts})
}

// liveFeed upgrades to the dashboard WebSocket.
func (h *Handler) liveFeed(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	ws.ServeWebSocket(h.Hub, c.Writer, c.Request, claims.Subject)
}
