package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"omnilead-server/database"
	"omnilead-server/middleware"
	"omnilead-server/models"
	"omnilead-server/services"
)

// registerContractor handles public contractor signup.
func (h *Handler) registerContractor(c *gin.Context) {
	var in services.RegisterInput
	if !bindJSON(c, &in) {
		return
	}

	contractor, err := h.Directory.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "contractor": contractor.WithoutSecrets()})
}

// createContractor lets the admin add an account on a contractor's behalf.
func (h *Handler) createContractor(c *gin.Context) {
	var in services.RegisterInput
	if !bindJSON(c, &in) {
		return
	}

	contractor, err := h.Directory.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionCreateContractor, contractor.ID, contractor.Company)
	c.JSON(http.StatusOK, gin.H{"ok": true, "contractor": contractor.WithoutSecrets()})
}

func (h *Handler) contractorLogin(c *gin.Context) {
	var in services.LoginInput
	if !bindJSON(c, &in) {
		return
	}

	res, err := h.Directory.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	sessionCookie(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"contractor": res.Contractor,
		"token":      res.Token,
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in services.ProfileInput
	if !bindJSON(c, &in) {
		return
	}

	claims := middleware.ClaimsFrom(c)
	contractor, err := h.Directory.UpdateProfile(c.Request.Context(), claims.Subject, in)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "contractor": contractor.WithoutSecrets()})
}

// listContractors is the public directory: blocked accounts are hidden and
// bot credentials stripped.
func (h *Handler) listContractors(c *gin.Context) {
	filter := database.Filter{"blocked": false}
	if service := c.Query("service"); service != "" {
		filter["service"] = service
	}

	records, err := h.Directory.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	out := make([]models.Contractor, 0, len(records))
	for _, r := range records {
		out = append(out, r.Public())
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "records": out})
}

// getContractor returns one public profile with its approved reviews.
func (h *Handler) getContractor(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	contractor, err := h.Directory.Get(ctx, id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if contractor.Blocked {
		respondError(c, h.Logger, database.ErrNotFound)
		return
	}

	reviews, err := h.Reviews.ListPublic(ctx, id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"contractor": contractor.Public(),
		"reviews":    reviews,
	})
}

func (h *Handler) deleteContractor(c *gin.Context) {
	n, err := h.Directory.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionDeleteContractor, c.Param("id"), "")
	c.JSON(http.StatusOK, gin.H{"ok": true, "removed": n})
}

type verifyRequest struct {
	Verified bool `json:"verified"`
}

func (h *Handler) verifyContractor(c *gin.Context) {
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}

	contractor, err := h.Directory.SetVerification(c.Request.Context(), c.Param("id"), req.Verified)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionVerifyContractor, contractor.ID, strconv.FormatBool(req.Verified))
	c.JSON(http.StatusOK, gin.H{"ok": true, "contractor": contractor.WithoutSecrets()})
}

type blockContractorRequest struct {
	Blocked bool `json:"blocked"`
}

func (h *Handler) blockContractor(c *gin.Context) {
	var req blockContractorRequest
	if !bindJSON(c, &req) {
		return
	}

	contractor, err := h.Directory.SetBlocked(c.Request.Context(), c.Param("id"), req.Blocked)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionBlockContractor, contractor.ID, strconv.FormatBool(req.Blocked))
	c.JSON(http.StatusOK, gin.H{"ok": true, "contractor": contractor.WithoutSecrets()})
}

type badgeRequest struct {
	ContractorID string `json:"contractorId"`
	Badge        string `json:"badge"`
}

func (h *Handler) applyBadge(c *gin.Context) {
	var req badgeRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ContractorID == "" {
		respondError(c, h.Logger, &services.ValidationError{Fields: []string{"contractorId"}})
		return
	}

	contractor, err := h.Directory.SetBadge(c.Request.Context(), req.ContractorID, req.Badge)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionApplyBadge, req.ContractorID, string(contractor.Badge))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
