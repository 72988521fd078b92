package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hpc-portal/internal/model"
	"hpc-portal/pkg/constants"
)

// LoggerMiddleware 请求日志, 5xx 记为 error, 审批链接的 token 不落日志
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("cost", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if query := c.Request.URL.Query(); query.Has("token") {
			query.Set("token", "***")
			fields = append(fields, zap.String("query", query.Encode()))
		} else if c.Request.URL.RawQuery != "" {
			fields = append(fields, zap.String("query", c.Request.URL.RawQuery))
		}
		if v, ok := c.Get(constants.CurrentUserKey); ok {
			if user, ok := v.(*model.User); ok {
				fields = append(fields, zap.String("user", user.Username))
			}
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("errors", errs))
		}

		level := zapcore.InfoLevel
		if status >= 500 {
			level = zapcore.ErrorLevel
		}
		logger.Log(level, "请求", fields...)
	}
}
