package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ContextUserID = "user_id"

type AuthMiddleware struct {
	jwtSecret     []byte
	operatorToken string
}

func NewAuthMiddleware(jwtSecret, operatorToken string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:     []byte(jwtSecret),
		operatorToken: operatorToken,
	}
}

// Authenticate validates the bearer token and puts the subject user id on
// the context; every user-scoped route reads it from there.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			abortUnauthorized(c, "invalid token subject")
			return
		}
		userID, err := uuid.Parse(subject)
		if err != nil {
			abortUnauthorized(c, "invalid token subject")
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// RequireOperator guards the operational endpoints with a static token.
func (m *AuthMiddleware) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if m.operatorToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(m.operatorToken)) != 1 {
			abortUnauthorized(c, "operator token required")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user from the request context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    http.StatusUnauthorized,
			"message": message,
		},
	})
}
