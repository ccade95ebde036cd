package main

import (
	"net/http"

	"github.com/RajAbey68/ko-lake-villa-website-sub007/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, metrics http.Handler) {
	// public
	r.GET("/healthz", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := r.Group("/v1")
	{
		// Guest-facing prices; no auth.
		rooms := v1.Group("/rooms")
		{
			rooms.GET("/prices", h.ListRoomPrices)
			rooms.GET("/:room_id/price", h.GetRoomPrice)
		}

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", h.IssueToken)
			authGroup.POST("/refresh", h.RefreshToken)
		}

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(authMW)
		{
			overrides := admin.Group("/overrides")
			{
				overrides.GET("", httpapi.RequireOverrideEditor(), h.ListOverrides)
				overrides.PUT("/:room_id", httpapi.RequireOverrideEditor(), h.SetOverride)
				overrides.DELETE("/:room_id", httpapi.RequireOverrideEditor(), h.ClearOverride)
				overrides.POST("/revert", httpapi.RequireOwner(), h.RevertOverrides)
			}

			reports := admin.Group("/reports")
			{
				reports.GET("/overrides", httpapi.RequireOwner(), h.OverrideActivityReport)
			}
		}
	}
}
