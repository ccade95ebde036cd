package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/auth"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/config"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/pricing"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/rbac"
	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Admin   config.AdminConfig
	Pricing *pricing.Service
	Reports *reporting.Service

	// Ready reports backing store health for /healthz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// --- Health ---

func (h Handlers) Health(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

type tokenRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// IssueToken exchanges the admin credentials for a JWT token pair.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, password required"})
		return
	}
	pair, err := h.Auth.Login(time.Now(), h.Admin, req.UserID, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h Handlers) RefreshToken(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(time.Now(), req.RefreshToken, h.Admin)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// --- Prices (public) ---

// GetRoomPrice returns the price a room shows right now. It never fails for
// missing data; problems are listed in the quote's warnings.
func (h Handlers) GetRoomPrice(c *gin.Context) {
	if h.Pricing == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing not configured"})
		return
	}
	roomID := c.Param("room_id")
	if roomID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "room_id required"})
		return
	}
	c.JSON(http.StatusOK, h.Pricing.GetDisplayPrice(c.Request.Context(), roomID, time.Time{}))
}

func (h Handlers) ListRoomPrices(c *gin.Context) {
	if h.Pricing == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing not configured"})
		return
	}
	quotes, err := h.Pricing.GetDisplayPrices(c.Request.Context(), time.Time{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": quotes})
}

// --- Overrides (admin) ---

type setOverrideRequest struct {
	Price *float64 `json:"price"`
}

type overrideResponse struct {
	RoomID string    `json:"room_id"`
	Price  float64   `json:"price"`
	SetAt  time.Time `json:"set_at"`
	SetBy  string    `json:"set_by,omitempty"`
}

func toOverrideResponse(o pricing.Override) overrideResponse {
	return overrideResponse{RoomID: o.RoomID, Price: o.Price, SetAt: o.SetAt, SetBy: o.SetBy}
}

// ListOverrides returns the overrides live this week, ordered by room.
// RBAC: owner, staff or super_admin.
func (h Handlers) ListOverrides(c *gin.Context) {
	if h.Pricing == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing not configured"})
		return
	}
	all, err := h.Pricing.ListOverrides(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]overrideResponse, 0, len(all))
	for _, o := range all {
		out = append(out, toOverrideResponse(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	c.JSON(http.StatusOK, gin.H{"overrides": out})
}

// SetOverride stores a staff price that holds until the next Sunday revert.
// RBAC: owner, staff or super_admin.
func (h Handlers) SetOverride(c *gin.Context) {
	if h.Pricing == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing not configured"})
		return
	}
	var req setOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Price == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "price required", "field": "price"})
		return
	}

	ctx := pricing.WithClientIP(c.Request.Context(), c.ClientIP())
	o, err := h.Pricing.SetOverride(ctx, c.Param("room_id"), *req.Price, actorFrom(ctx))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOverrideResponse(o))
}

// ClearOverride returns a room to rule-based pricing.
// RBAC: owner, staff or super_admin.
func (h Handlers) ClearOverride(c *gin.Context) {
	if h.Pricing == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing not configured"})
		return
	}
	ctx := pricing.WithClientIP(c.Request.Context(), c.ClientIP())
	if err := h.Pricing.ClearOverride(ctx, c.Param("room_id"), actorFrom(ctx)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RevertOverrides runs the weekly revert check now. It only clears when a
// Sunday boundary has passed since the last revert.
// RBAC: owner or super_admin.
func (h Handlers) RevertOverrides(c *gin.Context) {
	if h.Pricing == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing not configured"})
		return
	}
	reverted, err := h.Pricing.Reconcile(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reverted": reverted})
}

// --- Reports (admin) ---

// defaultReportWindow applies when the request omits "from".
const defaultReportWindow = 30 * 24 * time.Hour

// OverrideActivityReport summarizes override activity from the audit log.
// Query: from, to (RFC3339, to defaults to now), room_id.
// RBAC: owner or super_admin.
func (h Handlers) OverrideActivityReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reports not configured"})
		return
	}
	to := time.Now().UTC()
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339", "field": "to"})
			return
		}
		to = t
	}
	from := to.Add(-defaultReportWindow)
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339", "field": "from"})
			return
		}
		from = t
	}

	out, err := h.Reports.OverrideActivity(c.Request.Context(), reporting.OverrideActivityRequest{
		Range:  reporting.TimeRange{From: from, To: to},
		RoomID: c.Query("room_id"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func actorFrom(ctx context.Context) pricing.Actor {
	uid, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	return pricing.Actor{UserID: uid, Role: role}
}

// writeError maps pricing errors to status codes. Persistence failures are
// retryable, so they surface as 503.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ve *pricing.ValidationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ve.Reason, "field": ve.Field})
		return
	}
	var pe *pricing.PersistenceError
	if errors.As(err, &pe) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry later"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// Convenience middleware bundles.

// RequireOverrideEditor admits roles allowed to set and clear overrides.
func RequireOverrideEditor() gin.HandlerFunc {
	return rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleStaff)
}

// RequireOwner admits the property owner (and super_admin).
func RequireOwner() gin.HandlerFunc {
	return rbac.RequireAnyRole(rbac.RoleOwner)
}
