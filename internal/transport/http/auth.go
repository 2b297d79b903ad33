package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

const callerKey = "caller"

// Claims is the bearer token payload. The user id travels in sub.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate verifies an HS256 bearer token and stores the caller on the
// context. Requests without a valid token stop with 401.
func Authenticate(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}
		claims := &Claims{}
		_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err == nil && (claims.Subject == "" || !claims.Role.Valid()) {
			err = errors.New("token lacks subject or role")
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}
		c.Set(callerKey, app.Caller{ID: claims.Subject, Role: claims.Role})
		c.Next()
	}
}

func callerFrom(c *gin.Context) app.Caller {
	caller, _ := c.Get(callerKey)
	v, _ := caller.(app.Caller)
	return v
}
