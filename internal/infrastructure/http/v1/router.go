package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nahlund/backend/tileserver/internal/infrastructure/http/v1/handler"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/nahlund/backend/tileserver/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestIDHeader = "X-Request-ID"

func NewRouter(handler *handler.Handler, l logger.Logger, telemetryEnabled bool) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	if telemetryEnabled {
		r.Use(telemetry.GinMiddleware("nahlund-tileserver"))
	}

	r.Use(requestID())
	r.Use(ginZapLogger(l))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", handler.Healthz)

	v1.GET("/tiles/:kind/:z/:x/:y", handler.Tile)
	v1.PUT("/tiles/custom/:z/:x/:y", handler.PutCustomTile)

	v1.GET("/cache/stats", handler.CacheStats)
	v1.DELETE("/cache/:kind", handler.EvictCache)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// requestID keeps a caller supplied request id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLogger := l
		if zl, ok := l.(*logger.ZapLogger); ok {
			reqLogger = zl.With("request_id", c.GetString("request_id"))
		}
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), reqLogger))

		start := time.Now()

		c.Next()

		latency := time.Since(start)

		reqLogger.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}
