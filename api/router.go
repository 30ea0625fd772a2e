package api

import (
	"net/http"
	"time"

	"github.com/Almirante-Ming/Rose/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// NewRouter wires the development backend on top of s.
func NewRouter(s store.Store, cfg Config, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger = logger.With(zap.String("component", "api"))

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"sucess":  true,
			"message": "servers are up",
		})
	})

	NewLoginHandler(s, cfg.JWTSecret, cfg.TokenTTL, logger).Register(r)

	authed := r.Group("")
	authed.Use(BearerAuth(cfg.JWTSecret))

	NewScheduleHandler(s).Register(authed)
	NewDirectoryHandler(s).Register(authed)

	return r
}

// RequestLogger logs each request once it is served, with any errors the
// handlers attached.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
		}

		if len(c.Errors) > 0 {
			logger.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}

		logger.Info("request served", fields...)
	}
}
