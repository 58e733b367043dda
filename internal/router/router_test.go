package router

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/handler/handlertest"
	"github.com/jwalitptl/carelink-api/internal/handler/health"
	"github.com/jwalitptl/carelink-api/internal/middleware"
	"github.com/jwalitptl/carelink-api/pkg/metrics"
)

type echoHandler struct{}

func (echoHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/echo", func(c *gin.Context) {
		p, _ := middleware.PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"subject": p.Subject})
	})
}

func newRouter() *Router {
	gin.SetMode(gin.TestMode)
	r := NewRouter(
		handlertest.Auth(),
		Handlers{
			Public:    []handler.Handler{health.NewHandler(nil)},
			Protected: []handler.Handler{echoHandler{}},
		},
		metrics.NewMetrics(prometheus.NewRegistry(), "test"),
		RouterConfig{
			RateLimit:  100,
			RateBurst:  100,
			CORSConfig: middleware.DefaultCORSConfig("https://app.example.org"),
		},
	)
	r.Setup()
	return r
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	r := newRouter().Engine()

	w := handlertest.Do(r, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = handlertest.Do(r, http.MethodGet, "/echo", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Authorization header is expected"}`, w.Body.String())

	w = handlertest.Do(r, http.MethodGet, "/echo", handlertest.PhysicianToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"auth0|physician"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
