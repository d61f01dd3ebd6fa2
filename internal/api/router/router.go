package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-be/internal/api/handler"
	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": deps.Service,
				"error":   err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": deps.Service,
		})
	})

	actor := ActorMiddleware(deps.Users, deps.Logger)
	admin := RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)

	if deps.LiveFeed != nil {
		r.GET("/ws/bookings", actor, admin, gin.WrapF(deps.LiveFeed))
	}

	h := handler.NewBookingHandler(deps)

	v1 := r.Group("/api/v1")
	v1.Use(actor)
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", RequireRole(domain.RoleCustomer), h.CreateBooking)
			bookings.GET("/:id", h.GetBooking)
			bookings.PUT("/:id", admin, h.UpdateBooking)

			bookings.POST("/accept", RequireRole(domain.RoleTranslator), h.AcceptBooking)
			bookings.POST("/:id/accept", RequireRole(domain.RoleTranslator), h.AcceptBookingWithID)
			bookings.POST("/:id/cancel", h.CancelBooking)
			bookings.POST("/:id/end", h.EndBooking)
			bookings.POST("/:id/customer-not-call", h.CustomerNotCall)

			bookings.POST("/:id/reopen", admin, h.ReopenBooking)
			bookings.POST("/:id/notifications/push", admin, h.ResendPush)
			bookings.POST("/:id/notifications/sms", admin, h.ResendSMS)
		}
	}

	return r
}
