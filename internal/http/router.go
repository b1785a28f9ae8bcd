package http

import (
	"log/slog"

	"tictactoe_relay/internal/http/handlers"
	"tictactoe_relay/internal/http/middleware"
	"tictactoe_relay/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes - все, что нужно для сборки роутера relay
type Routes struct {
	Handler       *handlers.Handler
	WS            *ws.WSHandler
	RateLimiter   *middleware.RateLimiter // nil - без лимита
	Gatherer      prometheus.Gatherer
	AllowedOrigin string
	Log           *slog.Logger
}

func NewRouter(rt Routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(rt.Log))
	r.Use(middleware.CORS(rt.AllowedOrigin))

	RegisterRoutes(r, rt)
	return r
}

func RegisterRoutes(r *gin.Engine, rt Routes) {
	r.GET("/healthz", rt.Handler.Health)
	r.GET("/api/sessions/:id", rt.Handler.GetSession)

	if rt.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rt.Gatherer, promhttp.HandlerOpts{})))
	}

	wsChain := []gin.HandlerFunc{}
	if rt.RateLimiter != nil {
		wsChain = append(wsChain, rt.RateLimiter.Middleware())
	}
	wsChain = append(wsChain, rt.WS.HandleWS())
	r.GET("/ws", wsChain...)
}
