// api/router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/consentgate/api/controller"
	"github.com/dev-mohitbeniwal/consentgate/api/middleware"
)

type Options struct {
	Limiter           middleware.LimitFunc
	RateLimitRequests int
	RateLimitDuration time.Duration
	// AdminAuth guards cache maintenance and audit queries.
	AdminAuth gin.HandlerFunc
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestContext())
	router.Use(middleware.Logger())
	if opts.Limiter != nil {
		router.Use(middleware.RateLimiter(opts.Limiter, opts.RateLimitRequests, opts.RateLimitDuration))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	controllers.Access.RegisterRoutes(api)

	admin := api.Group("")
	if opts.AdminAuth != nil {
		admin.Use(opts.AdminAuth)
	}
	controllers.Access.RegisterAdminRoutes(admin)
	controllers.Audit.RegisterRoutes(admin)

	return router
}
