package routes

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"omnilead-server/database"
	"omnilead-server/services"
)

// submitReview accepts multipart (with "images") or plain JSON reviews.
func (h *Handler) submitReview(c *gin.Context) {
	var in services.ReviewInput
	if err := c.ShouldBind(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid review payload"})
		return
	}

	var headers []*multipart.FileHeader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid multipart form"})
			return
		}
		headers = form.File["images"]
	}

	uploads, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	review, err := h.Reviews.Submit(c.Request.Context(), in, uploads)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "review": review})
}

// openUploads checks the file headers before opening any of them.
func openUploads(headers []*multipart.FileHeader) ([]services.Upload, func(), error) {
	files := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		files = append(files, services.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		})
	}
	if err := services.ValidateImages(files); err != nil {
		return nil, func() {}, err
	}

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		files[i].Body = f
	}
	return files, closeAll, nil
}

func (h *Handler) listReviews(c *gin.Context) {
	reviews, err := h.Reviews.ListPublic(c.Request.Context(), c.Query("contractorId"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "records": reviews})
}

func (h *Handler) adminReviews(c *gin.Context) {
	filter := database.Filter{}
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	if id := c.Query("contractorId"); id != "" {
		filter["contractor_id"] = id
	}

	reviews, err := h.Reviews.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "records": reviews})
}

type moderateRequest struct {
	Status string `json:"status"`
}

func (h *Handler) moderateReview(c *gin.Context) {
	var req moderateRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.Reviews.Moderate(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.record(c, services.ActionModerateReview, review.ID, string(review.Status))
	c.JSON(http.StatusOK, gin.H{"ok": true, "review": review})
}
