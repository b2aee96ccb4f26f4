package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"portcontracts/utils"
)

const userContextKey = "user"

// User пользователь, извлеченный из JWT токена
type User struct {
	ID    string
	Email string
}

// Name возвращает имя для журналов и поля updatedBy
func (u User) Name() string {
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// Auth middleware проверяет JWT токен и сохраняет пользователя в контексте
func Auth(jwtKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "требуется заголовок Authorization",
			})
			return
		}

		// Убираем префикс "Bearer " если он есть
		tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))

		user, err := ParseToken(tokenString, jwtKey)
		if err != nil {
			utils.LogDebug("отклонен токен: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "недействительный токен",
			})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// ParseToken проверяет подпись HMAC и извлекает пользователя из claims
func ParseToken(tokenString string, jwtKey []byte) (User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return jwtKey, nil
	})
	if err != nil {
		return User{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return User{}, errors.New("неверные claims токена")
	}

	user := User{}
	switch id := claims["user_id"].(type) {
	case float64:
		user.ID = strconv.FormatUint(uint64(id), 10)
	case string:
		user.ID = id
	}
	if user.ID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			user.ID = sub
		}
	}
	user.Email, _ = claims["email"].(string)

	if user.ID == "" && user.Email == "" {
		return User{}, errors.New("в токене нет идентификатора пользователя")
	}
	return user, nil
}

// CurrentUser получает пользователя из контекста запроса
func CurrentUser(c *gin.Context) (User, bool) {
	value, ok := c.Get(userContextKey)
	if !ok {
		return User{}, false
	}
	user, ok := value.(User)
	return user, ok
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware логирует запросы к служебному слушателю
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		utils.Logger().Debug("ops request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
