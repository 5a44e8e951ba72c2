package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"checkin/internal/attendance"
	"checkin/internal/auth"
)

// scan always answers 200; the outcome is in the body because a rejected
// badge is a normal result for the operator.
func (h *Handler) scan(c *gin.Context) {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	res := h.Service.Scan(c.Request.Context(), auth.StationID(c), req.Payload)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) resume(c *gin.Context) {
	h.Service.ResumeScanning(auth.StationID(c))
	c.Status(http.StatusNoContent)
}

func (h *Handler) clearEntries(c *gin.Context) {
	h.Service.ClearEntries()
	c.Status(http.StatusNoContent)
}

func (h *Handler) listEvents(c *gin.Context) {
	if h.Events == nil {
		abort(c, http.StatusServiceUnavailable, "audit log not configured")
		return
	}
	f := attendance.EventFilter{
		StationID:  c.Query("station_id"),
		AttendeeID: c.Query("attendee_id"),
		Outcome:    attendance.Outcome(c.Query("outcome")),
		Limit:      50,
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	events, err := h.Events.ListEvents(c.Request.Context(), f)
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []attendance.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
