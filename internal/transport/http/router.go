package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the HTTP surface. Everything under /v1 requires a bearer
// token; /metrics and /healthz are open.
func NewRouter(secret []byte, bh *BookingHandler, th *TemplateHandler, rh *RecurringHandler) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(JWTAuth(secret))
	{
		v1.POST("/bookings", bh.Create)
		v1.GET("/bookings", bh.List)
		v1.GET("/bookings/:id", bh.Get)
		v1.POST("/bookings/:id/cancel", bh.Cancel)
		v1.POST("/bookings/:id/status", bh.UpdateStatus)
		v1.POST("/bookings/:id/checkin", bh.CheckIn)
		v1.GET("/bookings/:id/fee", bh.Fee)

		v1.GET("/vehicles/:id/availability", bh.Availability)

		v1.POST("/templates", th.Create)
		v1.GET("/templates", th.List)
		v1.POST("/templates/:id/instantiate", th.Instantiate)

		v1.POST("/recurring", rh.Create)
		v1.GET("/recurring/:id", rh.Get)
		v1.POST("/recurring/:id/pause", rh.Pause)
		v1.POST("/recurring/:id/resume", rh.Resume)
		v1.POST("/recurring/:id/cancel", rh.CancelRule)
		v1.POST("/recurring/run", RequireRole("ADMIN"), rh.RunGeneration)
	}
	return r
}
