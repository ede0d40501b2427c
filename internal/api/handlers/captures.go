package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/internal/models"
	"github.com/your-org/presence/internal/storage"
	"github.com/your-org/presence/pkg/dto"
)

// CapturePublisher enqueues capture tasks for the recognition workers.
type CapturePublisher interface {
	PublishCapture(ctx context.Context, source string, data interface{}) error
}

// SnapshotStore persists capture images.
type SnapshotStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// CaptureHandler is the asynchronous recognition path: accept a capture
// (descriptor plus optional snapshot image), store the image, and hand the
// task to the worker queue.
type CaptureHandler struct {
	minio     SnapshotStore
	publisher CapturePublisher
	loc       *time.Location
	dim       int
}

func NewCaptureHandler(minio SnapshotStore, publisher CapturePublisher, loc *time.Location, descriptorDim int) *CaptureHandler {
	return &CaptureHandler{minio: minio, publisher: publisher, loc: loc, dim: descriptorDim}
}

// Submit accepts a multipart capture: a "descriptor" form field holding a
// JSON float array, optional "day" and "source" fields, and an optional
// "image" file.
func (h *CaptureHandler) Submit(c *gin.Context) {
	var descriptor []float32
	if err := json.Unmarshal([]byte(c.PostForm("descriptor")), &descriptor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "descriptor field must be a JSON float array"})
		return
	}
	if len(descriptor) != h.dim {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": fmt.Sprintf("descriptor must have %d elements, got %d", h.dim, len(descriptor)),
		})
		return
	}

	now := time.Now()
	day := c.PostForm("day")
	if day == "" {
		day = attendance.DayOf(now, h.loc)
	} else if err := attendance.ValidateDay(day); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	source := c.PostForm("source")
	if source == "" {
		source = "webcam"
	}

	task := models.CaptureTask{
		CaptureID:  uuid.New(),
		Descriptor: descriptor,
		Day:        day,
		Timestamp:  now,
		Source:     source,
	}

	if file, header, err := c.Request.FormFile("image"); err == nil {
		defer file.Close()
		imageData, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
			return
		}
		key := storage.SnapshotKey(day, task.CaptureID.String())
		if err := h.minio.PutObject(c.Request.Context(), key, imageData, header.Header.Get("Content-Type")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store snapshot failed"})
			return
		}
		task.SnapshotKey = key
	}

	if err := h.publisher.PublishCapture(c.Request.Context(), source, task); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, dto.CaptureAccepted{
		CaptureID: task.CaptureID,
		Day:       day,
	})
}
