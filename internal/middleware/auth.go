package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/pkg/jwt"
)

const ctxUserID = "userID"

const (
	msgNoAuthHeader  = "Missing authorization header"
	msgBadAuthScheme = "Invalid authorization header format"
)

// bearerToken pulls the token out of "Authorization: Bearer <token>".
// On failure it returns the client-facing reason.
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", msgNoAuthHeader
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || token == "" || !strings.EqualFold(scheme, "Bearer") {
		return "", msgBadAuthScheme
	}
	return token, ""
}

// JWTAuth rejects requests without a valid session token and stores the
// session's user id on the context.
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, reason := bearerToken(c.GetHeader("Authorization"))
		if reason != "" {
			unauthorized(c, reason)
			return
		}

		claims, err := jwtManager.VerifyToken(token)
		switch {
		case errors.Is(err, jwt.ErrExpiredToken):
			unauthorized(c, "Token expired")
			return
		case err != nil:
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	common.ErrorResponse(c, http.StatusUnauthorized, msg, nil)
	c.Abort()
}

// GetUserID returns the authenticated user id, or "" on public routes
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
