package httpapi

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"checkin/internal/badge"
	"checkin/internal/cloudinary"
	"checkin/internal/export"
	"checkin/internal/roster"
)

const badgesFilename = "badges.pdf"

func (h *Handler) exportCSV(c *gin.Context) {
	entered, _ := strconv.ParseBool(c.Query("entered"))
	var buf bytes.Buffer
	if _, err := export.WriteCSV(&buf, h.Service.Store().Snapshot(), export.Options{EnteredOnly: entered}); err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// selected returns the roster, narrowed to ?ids=a,b when given.
func (h *Handler) selected(c *gin.Context) []roster.Record {
	records := h.Service.Store().Snapshot()
	raw := c.Query("ids")
	if raw == "" {
		return records
	}
	want := map[string]bool{}
	for _, id := range strings.Split(raw, ",") {
		want[strings.TrimSpace(id)] = true
	}
	out := records[:0]
	for _, r := range records {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func (h *Handler) render(c *gin.Context) ([]byte, badge.Report, bool) {
	if h.Badges == nil {
		abort(c, http.StatusServiceUnavailable, "badge rendering not configured")
		return nil, badge.Report{}, false
	}
	var buf bytes.Buffer
	report, err := h.Badges.Render(c.Request.Context(), h.selected(c), &buf)
	if errors.Is(err, badge.ErrNothingRendered) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "report": report})
		return nil, report, false
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return nil, report, false
	}
	return buf.Bytes(), report, true
}

func (h *Handler) badgesPDF(c *gin.Context) {
	pdf, report, ok := h.render(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+badgesFilename+`"`)
	c.Header("X-Badges-Rendered", strconv.Itoa(report.Rendered))
	c.Header("X-Badges-Failed", strconv.Itoa(len(report.Failed)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) publishBadges(c *gin.Context) {
	if h.Publisher == nil {
		abort(c, http.StatusServiceUnavailable, "document storage not configured")
		return
	}
	pdf, report, ok := h.render(c)
	if !ok {
		return
	}
	res, err := h.Publisher.Upload(c.Request.Context(), pdf, badgesFilename, c.Query("public_id"), cloudinary.ResourceRaw)
	if err != nil {
		log.Printf("badge publish failed: %v", err)
		abort(c, http.StatusBadGateway, "badge upload failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":       res.SecureURL,
		"public_id": res.PublicID,
		"bytes":     res.Bytes,
		"report":    report,
	})
}
