package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/pkg/dto"
)

// SnapshotReader serves capture images stored alongside attendance records.
type SnapshotReader interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

type AttendanceHandler struct {
	db        IdentityStore
	recorder  *attendance.Recorder
	snapshots SnapshotReader
	loc       *time.Location
}

func NewAttendanceHandler(db IdentityStore, recorder *attendance.Recorder, snapshots SnapshotReader, loc *time.Location) *AttendanceHandler {
	return &AttendanceHandler{db: db, recorder: recorder, snapshots: snapshots, loc: loc}
}

// Mark records attendance for an identity by hand (admin path, no probe).
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident, err := h.db.GetIdentity(c.Request.Context(), req.IdentityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}

	out, err := h.recorder.Record(c.Request.Context(), req.IdentityID, req.Day, time.Now(), "")
	if err != nil {
		if attendance.ValidateDay(req.Day) != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := dto.AttendanceStatusAlreadyMarked
	code := http.StatusOK
	if out.Marked {
		status = dto.AttendanceStatusMarked
		code = http.StatusCreated
	}

	c.JSON(code, dto.MarkResult{
		Status:   status,
		RecordID: out.Record.ID,
		Day:      out.Record.Day,
	})
}

// List returns attendance records newest-first, optionally for one day.
func (h *AttendanceHandler) List(c *gin.Context) {
	day := c.Query("day")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, total, err := h.recorder.List(c.Request.Context(), day, limit, offset)
	if err != nil {
		if day != "" && attendance.ValidateDay(day) != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	names, err := identityNames(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AttendanceRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, dto.AttendanceRecordResponse{
			ID:          rec.ID,
			IdentityID:  rec.IdentityID,
			Name:        names[rec.IdentityID],
			Day:         rec.Day,
			Timestamp:   rec.Timestamp.Format(time.RFC3339),
			SnapshotKey: rec.SnapshotKey,
			CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, dto.AttendanceListResponse{Records: resp, Total: total})
}

// Snapshot serves the capture image stored for an attendance record.
func (h *AttendanceHandler) Snapshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	rec, err := h.recorder.Find(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil || rec.SnapshotKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for record"})
		return
	}

	data, err := h.snapshots.GetObject(c.Request.Context(), rec.SnapshotKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot unavailable"})
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// DailyStats serves the dashboard aggregate for one day (default today).
func (h *AttendanceHandler) DailyStats(c *gin.Context) {
	day := c.Query("day")
	if day == "" {
		day = attendance.DayOf(time.Now(), h.loc)
	}

	total, err := h.db.CountIdentities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.recorder.DailyStatistics(c.Request.Context(), day, total)
	if err != nil {
		if attendance.ValidateDay(day) != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.DailyStatsResponse{
		Day:                   stats.Day,
		TotalIdentities:       stats.TotalIdentities,
		PresentCount:          stats.PresentCount,
		AbsentCount:           stats.AbsentCount,
		AttendanceRatePercent: stats.AttendanceRatePercent,
	})
}
