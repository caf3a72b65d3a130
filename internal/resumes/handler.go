package resumes

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumind-backend/internal/shared/server/middleware"
	"resumind-backend/internal/shared/server/respond"
)

// maxUploadBytes bounds one resume upload.
const maxUploadBytes = 20 << 20

// Handler wires HTTP handlers to the resumes service.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:     svc,
		limiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/analyze", h.analyze)
	rg.GET("/resumes/:id", h.getRecord)
	rg.GET("/resumes/:id/feedback", h.getFeedback)
	rg.GET("/resumes/:id/file", h.getFile)
	rg.GET("/resumes/:id/image", h.getImage)
}

// analyze runs the pipeline and streams progress to the caller as
// server-sent events: zero or more "status" events, an optional "preview"
// event, then a terminal "complete" or "failed" event.
func (h *Handler) analyze(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "a resume file is required", nil)
		return
	}
	defer file.Close()

	document, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read uploaded file", nil)
		return
	}
	if len(document) > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds the upload limit", nil)
		return
	}

	input := RunInput{
		UserID:         userID,
		FileName:       header.Filename,
		Document:       document,
		CompanyName:    c.PostForm("companyName"),
		JobTitle:       c.PostForm("jobTitle"),
		JobDescription: c.PostForm("jobDescription"),
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respond.Error(c, http.StatusInternalServerError, "internal", "streaming unsupported", nil)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	progress := func(update StatusUpdate) {
		if len(update.PreviewPNG) > 0 {
			c.SSEvent("preview", gin.H{
				"imageDataURL": "data:image/png;base64," + base64.StdEncoding.EncodeToString(update.PreviewPNG),
			})
		} else {
			c.SSEvent("status", gin.H{
				"stage":   update.Stage,
				"message": update.Message,
			})
		}
		flusher.Flush()
	}

	rec, err := h.Svc.Run(c.Request.Context(), input, progress)
	if err != nil {
		var stageErr *StageError
		if !errors.As(err, &stageErr) {
			stageErr = &StageError{Stage: "internal", Reason: "unexpected failure"}
		}
		c.SSEvent("failed", gin.H{
			"stage":  stageErr.Stage,
			"reason": stageErr.Reason,
		})
		flusher.Flush()
		return
	}

	c.Set("resumeId", rec.ID)
	c.SSEvent("complete", gin.H{"id": rec.ID})
	flusher.Flush()
}

func (h *Handler) getRecord(c *gin.Context) {
	rec, ok := h.loadOwned(c)
	if !ok {
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) getFeedback(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	if !h.limiter.Allow(userID, id) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too fast", nil)
		return
	}

	rec, ok := h.loadOwned(c)
	if !ok {
		return
	}

	fb, err := h.Svc.GetFeedback(c.Request.Context(), rec.ID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load feedback", nil)
		return
	}
	// fb is nil while the analysis is still pending; JSON null mirrors the
	// stored state.
	respond.OK(c, fb)
}

func (h *Handler) getFile(c *gin.Context) {
	h.streamBlob(c, "application/pdf", h.Svc.OpenDocument)
}

func (h *Handler) getImage(c *gin.Context) {
	h.streamBlob(c, "image/png", h.Svc.OpenImage)
}

func (h *Handler) streamBlob(c *gin.Context, contentType string, open func(ctx context.Context, userID, id string) (io.ReadCloser, error)) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "record id is required", nil)
		return
	}
	c.Set("resumeId", id)
	body, err := open(c.Request.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "record not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open stored file", nil)
		}
		return
	}
	defer body.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		// The response is already committed; nothing useful to send.
		return
	}
}

func (h *Handler) loadOwned(c *gin.Context) (Record, bool) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "record id is required", nil)
		return Record{}, false
	}
	c.Set("resumeId", id)
	rec, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "record not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load record", nil)
		}
		return Record{}, false
	}
	if rec.UserID != "" && rec.UserID != userID {
		respond.Error(c, http.StatusNotFound, "not_found", "record not found", nil)
		return Record{}, false
	}
	return rec, true
}
