package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Christina1281995/tema-emotions/internal/dataset"
	"github.com/Christina1281995/tema-emotions/internal/middleware"
	"github.com/Christina1281995/tema-emotions/internal/models"
	"github.com/Christina1281995/tema-emotions/internal/service"
	"github.com/Christina1281995/tema-emotions/internal/session"
)

// Handler handles HTTP requests
type Handler struct {
	labeling   *service.LabelingService
	tokens     *service.TokenIssuer
	sessions   *session.Manager
	uploadMode bool
	logger     *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(labeling *service.LabelingService, tokens *service.TokenIssuer, sessions *session.Manager, uploadMode bool, logger *zap.Logger) *Handler {
	return &Handler{
		labeling:   labeling,
		tokens:     tokens,
		sessions:   sessions,
		uploadMode: uploadMode,
		logger:     logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	api.POST("/auth/login", h.Login)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(h.tokens, h.sessions, h.logger))
	{
		authed.POST("/auth/logout", h.Logout)
		authed.GET("/rows/current", h.CurrentRow)
		authed.POST("/rows/submit", h.Submit)
		authed.GET("/progress", h.Progress)
		authed.POST("/datasets/upload", h.UploadDataset)
		authed.GET("/export/csv", h.ExportCSV)
		authed.GET("/export/json", h.ExportJSON)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// Login validates the username, resumes labeling progress and returns a
// session token.
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.labeling.Login(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, service.ErrUnknownUser) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Username not found"})
			return
		}
		if errors.Is(err, service.ErrStorageUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Results storage unavailable, please retry"})
			return
		}
		h.logger.Error("Login failed", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	token, err := h.tokens.Issue(sess.Author, sess.Token)
	if err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		h.labeling.Logout(sess)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	complete := false
	if sess.Dataset != nil {
		complete = sess.Progress.IsComplete(sess.Dataset.Len())
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:        token,
		Username:     sess.Author,
		CurrentIndex: sess.Progress.Current(),
		Complete:     complete,
		FormDefaults: sess.Progress.FormDefaults(),
	})
}

// Logout discards the caller's session.
func (h *Handler) Logout(c *gin.Context) {
	sess := middleware.SessionFromContext(c)
	h.labeling.Logout(sess)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// CurrentRow returns the row to label next, or the end-of-data state.
func (h *Handler) CurrentRow(c *gin.Context) {
	sess := middleware.SessionFromContext(c)

	resp, err := h.labeling.CurrentRow(sess)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Submit commits a label for the currently presented row.
func (h *Handler) Submit(c *gin.Context) {
	sess := middleware.SessionFromContext(c)

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.labeling.Submit(c.Request.Context(), sess, req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Progress returns how far the labeler is through the dataset.
func (h *Handler) Progress(c *gin.Context) {
	sess := middleware.SessionFromContext(c)

	view, err := h.labeling.Progress(sess)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// UploadDataset attaches an uploaded CSV dataset to the session.
func (h *Handler) UploadDataset(c *gin.Context) {
	if !h.uploadMode {
		c.JSON(http.StatusConflict, gin.H{"error": "This deployment uses predefined datasets"})
		return
	}

	sess := middleware.SessionFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv file required in field 'file'"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	ds, err := dataset.Parse(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.labeling.AttachDataset(sess, ds); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dataset attached",
		"rows":    ds.Len(),
	})
}

// ExportCSV exports the caller's label records to CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	sess := middleware.SessionFromContext(c)

	records, err := h.labeling.Export(c.Request.Context(), sess.Author)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=results.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"author", "row_index", "message_id", "text", "source", "emotion", "target", "urgent", "irrelevant", "created_at"})

	// Write data
	for _, rec := range records {
		writer.Write([]string{
			rec.Author,
			fmt.Sprintf("%d", rec.RowIndex),
			fmt.Sprintf("%d", rec.MessageID),
			rec.Text,
			rec.Source,
			string(rec.Emotion),
			rec.Target,
			fmt.Sprintf("%t", rec.Urgent),
			fmt.Sprintf("%t", rec.Irrelevant),
			rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
}

// ExportJSON exports the caller's label records to JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	sess := middleware.SessionFromContext(c)

	records, err := h.labeling.Export(c.Request.Context(), sess.Author)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=results.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	encoder.Encode(records)
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tema-emotions",
		"version": "1.0.0",
	})
}

// renderError maps service errors to HTTP responses.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStaleSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "stale_submission"})
	case errors.Is(err, service.ErrDatasetChanged):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "dataset_changed"})
	case errors.Is(err, service.ErrDatasetAttached):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "dataset_attached"})
	case errors.Is(err, service.ErrNoDataset):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "no_dataset"})
	case errors.Is(err, service.ErrInvalidLabel):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "reason": "invalid_label"})
	case errors.Is(err, service.ErrStorageError), errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Results storage unavailable, please retry", "reason": "storage_error"})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
