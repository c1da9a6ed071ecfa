package logger

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const correlationKey = "correlationID"

// CorrelationHeader carries the request correlation ID in and out of the API.
const CorrelationHeader = "X-Correlation-ID"

// Init builds the process-wide zap logger. The level is taken from
// LOG_LEVEL (debug, info, warn, error), defaulting to info.
func Init() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(raw))); err == nil {
			level = parsed
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logg, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logg)
	return logg, nil
}

// Middleware assigns a correlation ID to every request and logs its outcome.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationKey, id)
		c.Header(CorrelationHeader, id)

		start := time.Now()
		c.Next()

		zap.L().Info("request",
			zap.String("correlation_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// CorrelationID returns the request correlation ID, if any.
func CorrelationID(c *gin.Context) string {
	id, _ := c.Value(correlationKey).(string)
	return id
}
