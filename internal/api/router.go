package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"social-activity-recommender/internal/logging"
)

// RouterConfig wires the gin engine. MetricsHandler defaults to the
// prometheus default registry.
type RouterConfig struct {
	Handler        *Handler
	Logger         *logging.Logger
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine serving every route of the Handler plus
// /metrics.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := logging.OrNop(cfg.Logger)

	r := gin.New()
	r.Use(requestLogger(logger))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("[API] handler panic", "path", c.Request.URL.Path, "panic", recovered)
		resp := InternalError()
		c.AbortWithStatusJSON(resp.Status, resp.Body)
	}))
	r.Use(corsMiddleware())

	for _, route := range cfg.Handler.Routes() {
		r.Handle(route.Method, route.Pattern, ginHandler(route.Handle))
	}

	metrics := cfg.MetricsHandler
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metrics))

	r.NoRoute(func(c *gin.Context) {
		resp := NotFound(c.Request.URL.Path)
		c.JSON(resp.Status, resp.Body)
	})
	return r
}

// corsMiddleware reflects any origin and allows credentials
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func ginHandler(handle HandleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			resp := badBody(err)
			c.JSON(resp.Status, resp.Body)
			return
		}

		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}
		query := make(map[string]string)
		for key, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				query[key] = values[0]
			}
		}

		resp := handle(c.Request.Context(), Request{Params: params, Query: query, Body: raw})
		c.JSON(resp.Status, resp.Body)
	}
}

func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("[API] request", fields...)
		case status >= 400:
			logger.Warn("[API] request", fields...)
		default:
			logger.Info("[API] request", fields...)
		}
	}
}
