package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karpool/karpool-client/internal/api/handlers"
	"github.com/karpool/karpool-client/internal/api/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, nrApp *newrelic.Application, allowedOrigins []string) {
	// Add New Relic middleware if enabled
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}
	r.Use(middleware.Metrics(), middleware.RequestLogger(h.Logger), middleware.CORS(allowedOrigins))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// WebSocket connection
		v1.GET("/ws", h.HandleWebSocket)

		session := v1.Group("/session")
		{
			session.GET("", h.GetSession)
			session.POST("/login", h.Login)
			session.POST("/signup", h.Signup)
			session.POST("/otp", h.ValidateOTP)
			session.POST("/logout", h.Logout)
			session.PUT("/role", h.SwitchRole)
			session.DELETE("/account", h.DeleteAccount)
			session.PUT("/interests", h.UpdateInterests)
			session.PUT("/vehicle", h.UpdateVehicle)
		}

		geo := v1.Group("/geo")
		{
			geo.GET("", h.GetGeo)
			geo.PUT("/target", h.SetTarget)
			geo.PUT("/coordinate", h.SetCoordinate)
			geo.PUT("/name", h.SetName)
			geo.POST("/places/search", h.SearchPlaces)
			geo.POST("/places/select", h.SelectPlace)
			geo.POST("/route", h.FetchRoute)
			geo.GET("/bookmarks", h.ListBookmarks)
			geo.POST("/bookmarks", h.AddBookmark)
			geo.DELETE("/bookmarks/:name", h.RemoveBookmark)
			geo.POST("/bookmarks/:name/select", h.SelectBookmark)
		}

		schedule := v1.Group("/schedule")
		{
			schedule.GET("", h.GetSchedule)
			schedule.POST("/dates", h.ToggleDate)
			schedule.PUT("/time", h.SetTime)
			schedule.DELETE("", h.ResetSchedule)
		}

		trips := v1.Group("/trips")
		{
			trips.GET("", h.GetTrips)
			trips.POST("/search", h.SearchTrips)
			trips.POST("/select", h.SelectTrip)
			trips.POST("/publish", h.PublishTrip)
			trips.GET("/upcoming", h.UpcomingTrips)
			trips.GET("/:id", h.GetTripView)
			trips.POST("/:id/join", h.JoinTrip)
			trips.GET("/:id/requests", h.ListRequests)
			trips.POST("/:id/requests/:requestId/accept", h.AcceptRequest)
			trips.POST("/:id/requests/:requestId/reject", h.RejectRequest)
			trips.POST("/:id/start", h.StartTrip)
			trips.POST("/:id/complete", h.CompleteTrip)
		}

		chats := v1.Group("/chats")
		{
			chats.GET("", h.ListChats)
			chats.POST("", h.OpenChat)
			chats.GET("/:chatId/messages", h.GetMessages)
			chats.POST("/:chatId/messages", h.SendMessage)
			chats.DELETE("/:chatId", h.DeleteChat)
		}
	}
}
