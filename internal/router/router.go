package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/middleware"
	"github.com/jwalitptl/carelink-api/pkg/metrics"
)

const socketPath = "/ws"

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
	SizeLimit      middleware.SizeLimitConfig
}

// Handlers groups what the router mounts. Public handlers are reachable
// without a token; the socket authenticates its own upgrade request.
type Handlers struct {
	Public    []handler.Handler
	Protected []handler.Handler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics, config RouterConfig) *Router {
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(m),
		middleware.Timeout(middleware.TimeoutConfig{
			Duration:  config.RequestTimeout,
			SkipPaths: []string{socketPath},
		}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	sizeLimit := config.SizeLimit
	if sizeLimit.MaxBodySize <= 0 {
		sizeLimit = middleware.DefaultSizeLimitConfig()
	}
	sizeLimit.SkipPaths = append(sizeLimit.SkipPaths, socketPath)
	engine.Use(middleware.SizeLimit(sizeLimit))

	return r
}

func (r *Router) Setup() {
	root := &r.engine.RouterGroup
	for _, h := range r.handlers.Public {
		h.RegisterRoutes(root)
	}

	protected := r.engine.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.handlers.Protected {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
