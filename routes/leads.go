package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"omnilead-server/database"
	"omnilead-server/middleware"
	"omnilead-server/services"
)

// submitLead stores a lead from the form or chat widget and fans it out.
func (h *Handler) submitLead(c *gin.Context) {
	var in services.LeadInput
	if !bindJSON(c, &in) {
		return
	}

	res, err := h.Leads.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"lead":    res.Lead,
		"results": res.Results,
	})
}

func (h *Handler) listLeads(c *gin.Context) {
	filter := database.Filter{}
	if id := c.Query("contractorId"); id != "" {
		filter["contractor_id"] = id
	}
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}

	leads, err := h.Leads.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "records": leads})
}

// contractorLeads lists the leads routed to the signed-in contractor.
func (h *Handler) contractorLeads(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	leads, err := h.Leads.List(c.Request.Context(), database.Filter{"contractor_id": claims.Subject})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "records": leads})
}

func (h *Handler) updateLead(c *gin.Context) {
	var upd services.LeadUpdate
	if !bindJSON(c, &upd) {
		return
	}

	lead, err := h.Leads.Reassign(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionUpdateLead, lead.ID, string(lead.Status))
	c.JSON(http.StatusOK, gin.H{"ok": true, "lead": lead})
}

func (h *Handler) deleteLead(c *gin.Context) {
	n, err := h.Leads.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionDeleteLead, c.Param("id"), "")
	c.JSON(http.StatusOK, gin.H{"ok": true, "removed": n})
}

type blockRequest struct {
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

func (h *Handler) addBlock(c *gin.Context) {
	var req blockRequest
	if !bindJSON(c, &req) {
		return
	}

	block, err := h.Leads.Block(c.Request.Context(), req.Phone, req.Email, req.Reason)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionBlockContact, block.ID, req.Reason)
	c.JSON(http.StatusOK, gin.H{"ok": true, "block": block})
}
