package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbaliyan/webmail/store"
)

// uploadPayload carries base64-encoded files to store ahead of a send.
type uploadPayload struct {
	Files []filePayload `json:"files" binding:"required"`
}

type filePayload struct {
	Filename string `json:"filename" binding:"required"`
	Content  string `json:"content" binding:"required"` // base64
	MIMEType string `json:"mime_type"`
}

// handleUpload stores attachment files and returns descriptors the
// client feeds back into the send request.
func (a *API) handleUpload(c *gin.Context) {
	if a.uploader == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Attachment storage not configured",
			"code":  codeNotConfigured,
		})
		return
	}

	var payload uploadPayload
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload.Files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "No files provided",
			"code":  codeInvalidRequest,
		})
		return
	}

	descriptors := make([]*store.AttachmentData, 0, len(payload.Files))
	for _, f := range payload.Files {
		content, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Invalid file content encoding",
				"code":  codeInvalidRequest,
			})
			return
		}

		desc, err := a.uploader.Upload(c.Request.Context(), f.Filename, f.MIMEType, content)
		if err != nil {
			a.logger.Error("attachment upload failed", "filename", f.Filename, "error", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
				"error": "Attachment upload failed",
				"code":  codeUpstreamError,
			})
			return
		}
		descriptors = append(descriptors, desc)
	}

	files := make([]gin.H, 0, len(descriptors))
	for _, d := range descriptors {
		files = append(files, gin.H{
			"filename":  d.Filename,
			"url":       d.FileURL,
			"size":      d.FileSize,
			"mime_type": d.MIMEType,
		})
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}
