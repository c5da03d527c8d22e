package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/pkg/middleware/requestid"
)

// Audit logs every completed mutation on the admin routes with the acting subject.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		subject := ""
		if claims := Claims(c); claims != nil {
			subject = claims.Subject
		}
		fields := []zap.Field{
			zap.String("action", action),
			zap.String("subject", subject),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", requestid.Value(c)),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= 400 {
			logger.Warn("admin action rejected", fields...)
			return
		}
		logger.Info("admin action", fields...)
	}
}
