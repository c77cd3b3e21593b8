package handlers

import (
	"github.com/gin-gonic/gin"
)

// NewRouter wires every route onto a fresh gin engine
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(h.Log), gin.Recovery())

	r.GET("/", h.Index)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/months/:year/:month/generate", h.Generate)
		api.POST("/months/:year/:month/reconcile", h.Reconcile)
		api.GET("/months/:year/:month/ranking", h.Ranking)

		api.POST("/assignments/:id/confirm", h.ConfirmAssignment)
		api.POST("/assignments/:id/replace", h.ReplaceAssignment)
		api.POST("/services/:id/assignments", h.AddAssignment)

		api.GET("/members/:id/duties", h.MemberDuties)

		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
