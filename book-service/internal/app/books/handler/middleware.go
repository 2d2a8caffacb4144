package handler

import (
	"net/http"
	"strings"

	"bookshelf/book-service/internal/app/books/entity"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// JWTClaims - токен выпускает auth-service, сервис только проверяет подпись
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(m.jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("roles", claims.Roles)

		c.Next()
	}
}

// RequireRole пропускает запрос, если у пользователя есть хотя бы одна из ролей
// Сравнение без учета регистра, префикс ROLE_ игнорируется
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("roles")
		if !exists {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userRoles, ok := value.([]string)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Invalid role data")
			return
		}

		if !hasAnyRole(userRoles, roles) {
			abortWithError(c, http.StatusForbidden, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

func hasAnyRole(userRoles []string, required []string) bool {
	for _, have := range userRoles {
		have = normalizeRole(have)
		for _, want := range required {
			if have == normalizeRole(want) {
				return true
			}
		}
	}
	return false
}

func normalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	return strings.TrimPrefix(role, "role_")
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
