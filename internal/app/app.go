package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recruitment-portal/internal/auth"
	"recruitment-portal/internal/booking"
	"recruitment-portal/internal/ratelimit"
)

// App holds the dependencies of the HTTP handlers.
type App struct {
	Bookings     *booking.Service
	Sessions     *auth.Sessions
	Google       *auth.Google
	Limiter      ratelimit.Limiter
	Log          *slog.Logger
	SecureCookie bool
	// Location is the configured interview time zone; nil means UTC.
	Location *time.Location

	now func() time.Time
}

// today is the current date in the interview time zone.
func (a *App) today() booking.Date {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	return booking.DateOf(now().In(loc))
}

// Register mounts every route on router.
func (a *App) Register(router *gin.Engine) {
	router.Use(Recovery(a.Log), RequestLogger(a.Log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// sign-in (before auth middleware)
	router.GET("/auth/google/login", a.GoogleLoginHandler)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api", a.RequireAuth())
	{
		api.GET("/me", a.MeHandler)
		api.GET("/interviewers", a.ListInterviewersHandler)
		api.GET("/interviewers/:id/slots", a.OpenSlotsHandler)

		apps := api.Group("/applications")
		{
			apps.POST("/:track", a.SubmitApplicationHandler)
			apps.GET("/:track", a.GetApplicationHandler)
			apps.PUT("/:track/schedule", a.RateLimit(), a.ScheduleInterviewHandler)
		}

		admin := api.Group("/admin", RequireAdmin())
		{
			admin.GET("/applications/:track", a.ListApplicationsHandler)
			admin.PUT("/applications/:track/:applicant/status", a.SetStatusHandler)
			admin.GET("/conflicts", a.ListConflictsHandler)
			admin.POST("/conflicts/resolve", a.ResolveConflictHandler)
		}
	}
}
