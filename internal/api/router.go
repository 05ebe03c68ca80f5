package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Route paths.
const (
	RouteHealth  = "/healthz"
	RouteBattles = "/battles"
	RouteBattle  = "/battles/:id"
)

// NewRouter builds the gin engine with recovery and request logging.
//
// Postcondition: Returns an engine serving every battle route.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger))

	router.GET(RouteHealth, h.Healthz)
	router.POST(RouteBattles, h.RunBattle)
	router.GET(RouteBattles, h.ListBattles)
	router.GET(RouteBattle, h.GetBattle)
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
