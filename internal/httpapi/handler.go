// Package httpapi exposes the check-in service over HTTP for scanning
// stations and the operator console.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"checkin/internal/attendance"
	"checkin/internal/auth"
	"checkin/internal/badge"
	"checkin/internal/cloudinary"
	"checkin/internal/reconcile"
)

// Stations persists station identities and refresh tokens.
type Stations interface {
	UpsertStation(ctx context.Context, stationID, label string) error
	SaveRefreshToken(ctx context.Context, stationID, token string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, token string) error
	RefreshTokenActive(ctx context.Context, token string) (bool, error)
}

// Events lists the audit log.
type Events interface {
	ListEvents(ctx context.Context, f attendance.EventFilter) ([]attendance.Event, error)
}

// Sync is the reconciliation loop as seen by operators.
type Sync interface {
	Reconcile(ctx context.Context) error
	Status() reconcile.Status
}

// Publisher stores rendered documents somewhere downloadable.
type Publisher interface {
	Upload(ctx context.Context, data []byte, filename, publicID, resourceType string) (*cloudinary.UploadResult, error)
}

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) bool

// TokenConfig controls station token issuance.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler serves the API. Sync and Publisher are optional.
type Handler struct {
	Service   *attendance.Service
	Stations  Stations
	Events    Events
	Sync      Sync
	Badges    *badge.Renderer
	Publisher Publisher
	Tokens    TokenConfig
	Probes    map[string]Probe
}

// Register mounts every route on r. Middleware in authed runs after
// authentication on /v1 routes that need a station token.
func (h *Handler) Register(r gin.IRouter, authed ...gin.HandlerFunc) {
	r.GET("/healthz", h.health)
	r.POST("/v1/stations/register", h.registerStation)
	r.POST("/v1/stations/refresh", h.refreshStation)

	chain := append([]gin.HandlerFunc{auth.StationAuth(h.Tokens.SigningKey, h.Tokens.Issuer)}, authed...)
	v1 := r.Group("/v1", chain...)

	v1.GET("/roster", h.listRoster)
	v1.POST("/roster", h.uploadRoster)
	v1.POST("/roster/pull", h.pullRoster)

	v1.POST("/scans", h.scan)
	v1.POST("/scans/resume", h.resume)
	v1.DELETE("/entries", h.clearEntries)

	v1.GET("/export.csv", h.exportCSV)
	v1.GET("/badges.pdf", h.badgesPDF)
	v1.POST("/badges/publish", h.publishBadges)

	v1.GET("/sync/status", h.syncStatus)
	v1.GET("/events", h.listEvents)
}

func (h *Handler) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, probe := range h.Probes {
		ok := probe(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
