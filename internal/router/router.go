package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sitebeam/notify-service/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit rate.Limit
	RateBurst int
	Registry  prometheus.Gatherer
}

// Router assembles the API surface. Three trust zones: health and metrics
// are open, user routes require a JWT, event ingestion and ops require the
// operator token.
type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	healthH       Handler
	notificationH Handler
	preferenceH   Handler
	deviceH       Handler
	eventH        Handler
	opsH          Handler
	config        Config
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	notificationH Handler,
	preferenceH Handler,
	deviceH Handler,
	eventH Handler,
	opsH Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	if err := middleware.RegisterValidations(); err != nil {
		panic(err)
	}

	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)
	if config.RateLimit > 0 {
		engine.Use(middleware.RateLimit(config.RateLimit, config.RateBurst))
	}

	return &Router{
		engine:        engine,
		auth:          auth,
		healthH:       healthH,
		notificationH: notificationH,
		preferenceH:   preferenceH,
		deviceH:       deviceH,
		eventH:        eventH,
		opsH:          opsH,
		config:        config,
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.healthH.RegisterRoutes(api)
	if r.config.Registry != nil {
		api.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.config.Registry, promhttp.HandlerOpts{})))
	}

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	{
		r.notificationH.RegisterRoutes(protected)
		r.preferenceH.RegisterRoutes(protected)
		r.deviceH.RegisterRoutes(protected)
	}

	operator := api.Group("")
	operator.Use(r.auth.RequireOperator())
	{
		r.eventH.RegisterRoutes(operator)
		r.opsH.RegisterRoutes(operator)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
