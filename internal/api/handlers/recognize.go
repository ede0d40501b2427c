package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/presence/internal/api/ws"
	"github.com/your-org/presence/internal/attendance"
	"github.com/your-org/presence/internal/match"
	"github.com/your-org/presence/internal/observability"
	"github.com/your-org/presence/pkg/dto"
)

// RecognizeHandler is the synchronous recognition path: resolve a probe
// descriptor and optionally mark attendance in one call.
type RecognizeHandler struct {
	db       IdentityStore
	resolver *match.Resolver
	recorder *attendance.Recorder
	hub      *ws.Hub
	loc      *time.Location
	dim      int
}

func NewRecognizeHandler(db IdentityStore, resolver *match.Resolver, recorder *attendance.Recorder, hub *ws.Hub, loc *time.Location, descriptorDim int) *RecognizeHandler {
	return &RecognizeHandler{db: db, resolver: resolver, recorder: recorder, hub: hub, loc: loc, dim: descriptorDim}
}

func (h *RecognizeHandler) Recognize(c *gin.Context) {
	var req dto.RecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Descriptor) != h.dim {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": fmt.Sprintf("descriptor must have %d elements, got %d", h.dim, len(req.Descriptor)),
		})
		return
	}

	now := time.Now()
	day := req.Day
	if day == "" {
		day = attendance.DayOf(now, h.loc)
	} else if err := attendance.ValidateDay(day); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	res := h.resolver.Resolve(req.Descriptor)
	observability.MatchDuration.Observe(time.Since(start).Seconds())

	if !res.Matched {
		observability.ProbesUnmatched.Inc()
		if h.hub != nil {
			h.hub.BroadcastEvent(&dto.WSEvent{
				Type: dto.EventFaceUnrecognized,
				Day:  day,
				Data: dto.WSEventData{
					Timestamp: now.Format(time.RFC3339),
					Source:    req.Source,
				},
			})
		}
		c.JSON(http.StatusOK, dto.RecognizeResponse{Recognized: false})
		return
	}
	observability.ProbesMatched.Inc()

	ident, err := h.db.GetIdentity(c.Request.Context(), res.IdentityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := ""
	if ident != nil {
		name = ident.Name
	}

	resp := dto.RecognizeResponse{
		Recognized: true,
		IdentityID: &res.IdentityID,
		Name:       name,
		Distance:   res.Distance,
	}

	if req.Record {
		out, err := h.recorder.Record(c.Request.Context(), res.IdentityID, day, now, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		status := dto.AttendanceStatusAlreadyMarked
		evtType := dto.EventAttendanceDuplicate
		if out.Marked {
			status = dto.AttendanceStatusMarked
			evtType = dto.EventAttendanceMarked
		}
		resp.Attendance = &dto.MarkResult{
			Status:   status,
			RecordID: out.Record.ID,
			Day:      day,
		}

		if h.hub != nil {
			recordID := out.Record.ID
			h.hub.BroadcastEvent(&dto.WSEvent{
				Type: evtType,
				Day:  day,
				Data: dto.WSEventData{
					IdentityID: &res.IdentityID,
					Name:       name,
					Distance:   res.Distance,
					RecordID:   &recordID,
					Timestamp:  now.Format(time.RFC3339),
					Source:     req.Source,
				},
			})
		}
	}

	c.JSON(http.StatusOK, resp)
}

// identityNames builds an ID-to-name map for response enrichment.
func identityNames(c *gin.Context, db IdentityStore) (map[uuid.UUID]string, error) {
	identities, err := db.ListIdentities(c.Request.Context())
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(identities))
	for _, ident := range identities {
		names[ident.ID] = ident.Name
	}
	return names, nil
}
