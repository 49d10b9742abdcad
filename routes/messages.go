package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"omnilead-server/services"
)

type messageRequest struct {
	ContractorID string `json:"contractorId"`
	Message      string `json:"message"`
}

// postMessage relays a contractor's message to the admin.
func (h *Handler) postMessage(c *gin.Context) {
	var req messageRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := h.Messages.Post(c.Request.Context(), req.ContractorID, req.Message); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) adminMessages(c *gin.Context) {
	messages, err := h.Messages.List(c.Request.Context(), c.Query("contractorId"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "records": messages})
}

// messageContractor sends an admin note to the contractor's own bot.
func (h *Handler) messageContractor(c *gin.Context) {
	var req messageRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.Messages.SendToContractor(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionMessageContractor, c.Param("id"), "")
	c.JSON(http.StatusOK, gin.H{"ok": res.OK, "result": res})
}

func (h *Handler) listServices(c *gin.Context) {
	records, err := h.Catalog.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "records": records})
}
