package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patungan-id/patungan/internal/allocator"
	"github.com/patungan-id/patungan/internal/extractor"
	"github.com/patungan-id/patungan/internal/service"
)

type handlers struct {
	svc            *service.SplitService
	maxUploadBytes int64
}

// split computes the per-person settlement and returns it as JSON.
func (h *handlers) split(c *gin.Context) {
	var req service.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	results, err := h.svc.Split(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// splitPDF computes the settlement and responds with the rendered document
// as a download named after the session.
func (h *handlers) splitPDF(c *gin.Context) {
	var req service.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	path, err := h.svc.SplitPDF(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, fmt.Sprintf("split_summary_%s.pdf", req.SessionID))
}

// uploadParse accepts a multipart receipt PDF and returns the scraped bill
// data for a subsequent compute request.
func (h *handlers) uploadParse(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return
	}

	receipt, err := h.svc.Parse(data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// respondError maps service error kinds onto HTTP statuses. Anything
// unrecognized is an internal failure and keeps its details out of the
// response body.
func respondError(c *gin.Context, err error) {
	var verr *allocator.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}
	var xerr *extractor.ExtractionError
	if errors.As(err, &xerr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "document could not be read"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
