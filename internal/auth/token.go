package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"practice-service/internal/config"
)

const (
	ctxKeyUserID = "auth_user_id"
	ctxKeyToken  = "auth_token"
)

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// ParseToken validates the bearer token against the platform secret and
// extracts the learner's identity.
func ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token is required")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.ServiceConfig.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// BearerToken strips the Bearer prefix from an Authorization header.
func BearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

// Middleware rejects unauthenticated requests and stashes the learner id and
// the raw token, which is forwarded to the learning backend as-is.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_TOKEN",
			})
			c.Abort()
			return
		}

		claims, err := ParseToken(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
				"code":  "INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyToken, raw)
		c.Next()
	}
}

// UserID returns the authenticated learner id set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// Token returns the raw bearer token set by Middleware.
func Token(c *gin.Context) string {
	return c.GetString(ctxKeyToken)
}
