package handler

import (
	"github.com/gin-gonic/gin"

	"linkup/backend/internal/auth"
)

// RegisterRoutes mounts the API under /api/v1.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", h.RegisterUser)
			authRoutes.POST("/login", h.LoginUser)
		}

		apiV1.GET("/industries", h.GetIndustries)
		apiV1.GET("/accounts/:kind/:id", auth.OptionalAuthMiddleware(), h.GetAccount)
		apiV1.GET("/events", auth.StreamAuthMiddleware(), h.StreamEvents)

		protected := apiV1.Group("")
		protected.Use(auth.AuthMiddleware())
		{
			accounts := protected.Group("/accounts")
			{
				accounts.GET("/me", h.GetMe)
				accounts.PUT("/me", h.UpdateMe)
				accounts.POST("/me/acting-as", h.SetActingAs)
			}
			protected.POST("/organizations", h.CreateOrganization)

			connections := protected.Group("/connections")
			{
				connections.GET("", h.ListConnections)
				connections.POST("", h.SendRequest)
				connections.GET("/pending", h.PendingRequests) // Must be before /:id
				connections.GET("/status/:kind/:id", h.ConnectionStatus)
				connections.POST("/:id/accept", h.AcceptRequest)
				connections.POST("/:id/reject", h.RejectRequest)
				connections.DELETE("/:id", h.RemoveConnection)
			}

			follows := protected.Group("/follows")
			{
				follows.POST("/:kind/:id", h.Follow)
				follows.DELETE("/:kind/:id", h.Unfollow)
			}

			blocks := protected.Group("/blocks")
			{
				blocks.GET("", h.ListBlocked)
				blocks.POST("/:kind/:id", h.Block)
				blocks.DELETE("/:kind/:id", h.Unblock)
			}

			contacts := protected.Group("/contacts")
			{
				contacts.GET("", h.ListContacts)
				contacts.DELETE("/:id", h.DeleteContact)
			}

			protected.GET("/suggestions", h.GetSuggestions)
		}

		// Admin routes (protected by auth and admin check)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(), auth.AdminMiddleware(h.store))
		{
			industries := adminRoutes.Group("/industries")
			{
				industries.POST("", h.CreateIndustry)
				industries.GET("", h.GetIndustries)
				industries.PUT("/:id", h.UpdateIndustry)
				industries.DELETE("/:id", h.DeleteIndustry)
			}
		}
	}
}
