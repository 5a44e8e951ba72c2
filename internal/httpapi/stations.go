package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin/internal/auth"
)

func (h *Handler) registerStation(c *gin.Context) {
	var req struct {
		StationID string `json:"station_id" binding:"required"`
		Label     string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Stations.UpsertStation(c.Request.Context(), req.StationID, req.Label); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	h.issue(c, req.StationID, http.StatusCreated)
}

func (h *Handler) refreshStation(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	claims, err := auth.ParseKind(req.RefreshToken, h.Tokens.SigningKey, h.Tokens.Issuer, auth.KindRefresh)
	if err != nil {
		abort(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	ctx := c.Request.Context()
	active, err := h.Stations.RefreshTokenActive(ctx, req.RefreshToken)
	if err != nil {
		abort(c, http.StatusInternalServerError, "token lookup failed")
		return
	}
	if !active {
		abort(c, http.StatusUnauthorized, "refresh token revoked")
		return
	}
	if err := h.Stations.RevokeRefreshToken(ctx, req.RefreshToken); err != nil {
		log.Printf("revoke refresh token for %s failed: %v", claims.Subject, err)
	}
	h.issue(c, claims.Subject, http.StatusOK)
}

func (h *Handler) issue(c *gin.Context, stationID string, status int) {
	tokens, err := auth.Issue(stationID, auth.RoleStation, h.Tokens.Issuer, h.Tokens.SigningKey, h.Tokens.AccessTTL, h.Tokens.RefreshTTL)
	if err != nil {
		abort(c, http.StatusInternalServerError, "token issue failed")
		return
	}
	if err := h.Stations.SaveRefreshToken(c.Request.Context(), stationID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		log.Printf("save refresh token for %s failed: %v", stationID, err)
	}
	c.JSON(status, gin.H{
		"station_id":    stationID,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}
