package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin/internal/reconcile"
	"checkin/internal/roster"
)

func (h *Handler) listRoster(c *gin.Context) {
	store := h.Service.Store()
	records := roster.Search(store.Snapshot(), c.Query("q"))
	total, entered := store.Counts()
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
		"entered": entered,
		"version": store.Version(),
	})
}

// uploadRoster replaces the roster from a multipart "file" field. The
// format follows the file extension unless ?format= is given.
func (h *Handler) uploadRoster(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		abort(c, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	format := roster.Format(c.Query("format"))
	if format == "" {
		if format, err = roster.FormatFromPath(header.Filename); err != nil {
			abort(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	records, err := roster.Read(file, format)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	warnings := h.Service.LoadRoster(records)
	if warnings == nil {
		warnings = []roster.Warning{}
	}
	c.JSON(http.StatusOK, gin.H{
		"loaded":   h.Service.Store().Len(),
		"warnings": warnings,
	})
}

func (h *Handler) pullRoster(c *gin.Context) {
	if h.Sync == nil {
		abort(c, http.StatusConflict, "remote sync not configured")
		return
	}
	err := h.Sync.Reconcile(c.Request.Context())
	switch {
	case errors.Is(err, reconcile.ErrPassInFlight):
		abort(c, http.StatusConflict, err.Error())
	case err != nil:
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error(), "sync": h.Sync.Status()})
	default:
		c.JSON(http.StatusOK, gin.H{"sync": h.Sync.Status(), "total": h.Service.Store().Len()})
	}
}

func (h *Handler) syncStatus(c *gin.Context) {
	if h.Sync == nil {
		c.JSON(http.StatusOK, gin.H{"state": "disabled"})
		return
	}
	c.JSON(http.StatusOK, h.Sync.Status())
}
