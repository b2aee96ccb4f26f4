package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portcontracts/utils"
)

// RateLimit middleware для ограничения частоты запросов по IP клиента
func RateLimit(limiter *utils.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, reset := limiter.Allow(c.ClientIP())

		// Добавляем заголовки с информацией о лимитах
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "слишком много запросов",
				"reset": reset.UTC().Format(time.RFC3339),
			})
			return
		}

		c.Next()
	}
}

// Logger middleware для логирования запросов
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(startTime)),
			zap.String("client_ip", c.ClientIP()),
		}
		if user, ok := CurrentUser(c); ok {
			fields = append(fields, zap.String("user", user.Name()))
		}

		log := utils.Logger()
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}

		for _, e := range c.Errors {
			utils.LogError("ошибка обработки запроса %s %s: %v", c.Request.Method, c.Request.URL.Path, e.Err)
		}
	}
}

// Recovery middleware для обработки паник
func Recovery(m *utils.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				utils.LogError("паника при обработке %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				m.RecordError("panic")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "внутренняя ошибка сервера",
				})
			}
		}()

		c.Next()
	}
}

// Metrics middleware записывает число и длительность запросов.
// Путь берется из шаблона маршрута, чтобы идентификаторы не раздували метки.
func Metrics(m *utils.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Set(metricsKey, m)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(startTime))
	}
}

const metricsKey = "metrics"

// MetricsFrom возвращает метрики, подключенные middleware Metrics.
// Без него используется общий экземпляр.
func MetricsFrom(c *gin.Context) *utils.Metrics {
	if v, ok := c.Get(metricsKey); ok {
		if m, ok := v.(*utils.Metrics); ok {
			return m
		}
	}
	return utils.GetMetrics()
}

// CORSMiddleware middleware для CORS
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
