// Package importer exposes the import job endpoints: enqueue a job, poll
// its result.
package importer

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"recipe-importer/internal/core/pipeline"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/infrastructure/queue"
	"recipe-importer/internal/pkg/common"
)

// Handler serves the import endpoints.
type Handler struct {
	cfg   *config.Config
	queue *queue.Queue
}

// NewHandler creates the import handler.
func NewHandler(cfg *config.Config, q *queue.Queue) *Handler {
	return &Handler{cfg: cfg, queue: q}
}

// importRequest is the enqueue request body.
type importRequest struct {
	Type     string   `json:"type" binding:"required"`
	URL      string   `json:"url"`
	Text     string   `json:"text"`
	Images   []string `json:"images"`
	UserID   string   `json:"userId" binding:"required"`
	Username string   `json:"username"`
}

// HandleEnqueue validates the request and queues an import job.
func (h *Handler) HandleEnqueue(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Message: "invalid request body",
			Code:    common.ErrCodeInvalidRequest,
		})
		return
	}

	inputType := pipeline.InputType(strings.ToLower(strings.TrimSpace(req.Type)))
	job := &queue.ImportJob{
		JobID:    uuid.NewString(),
		UserID:   req.UserID,
		Username: req.Username,
		Type:     inputType,
	}

	switch inputType {
	case pipeline.InputURL:
		validated, err := pipeline.ValidateImportURL(req.URL)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, common.ErrBlockedURL) {
				status = http.StatusForbidden
			}
			c.JSON(status, common.ErrorResponse{
				Message: err.Error(),
				Code:    common.ErrCodeInvalidRequest,
			})
			return
		}
		job.URL = validated
	case pipeline.InputText:
		if strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Message: "text is required for text imports",
				Code:    common.ErrCodeInvalidRequest,
			})
			return
		}
		job.Text = req.Text
	case pipeline.InputImage:
		if len(req.Images) == 0 {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Message: "at least one image is required for image imports",
				Code:    common.ErrCodeInvalidRequest,
			})
			return
		}
		if max := h.cfg.Image.MaxCount; max > 0 && len(req.Images) > max {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Message: "too many images",
				Code:    common.ErrCodeInvalidRequest,
			})
			return
		}
		job.Images = req.Images
	default:
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Message: "type must be one of url, text, image",
			Code:    common.ErrCodeInvalidRequest,
		})
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		if errors.Is(err, common.ErrDuplicateImport) {
			c.JSON(http.StatusConflict, common.ErrorResponse{
				Message: "an import for this url is already in progress",
				Code:    common.ErrCodeConflict,
			})
			return
		}
		common.LogError("failed to enqueue import",
			zap.Error(err),
			zap.String("job_id", job.JobID),
		)
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Message: "failed to enqueue import",
			Code:    common.ErrCodeInternalError,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  job.JobID,
		"status": queue.StatusPending,
	})
}

// HandleStatus returns the stored result for a job.
func (h *Handler) HandleStatus(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Message: "invalid job id",
			Code:    common.ErrCodeInvalidRequest,
		})
		return
	}

	result, err := h.queue.GetResult(c.Request.Context(), jobID)
	if err != nil {
		common.LogError("failed to read job result",
			zap.Error(err),
			zap.String("job_id", jobID),
		)
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Message: "failed to read job result",
			Code:    common.ErrCodeInternalError,
		})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, common.ErrorResponse{
			Message: "job not found or expired",
			Code:    common.ErrCodeNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
