package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/sahoauth/models"
	"github.com/princinho/sahoauth/utils"
	"go.uber.org/zap"
)

const (
	ContextUserID = "userID"
	ContextUser   = "user"
)

// Authorizer resolves the user behind an access token.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (*models.User, error)
}

// RequireAuth rejects requests without a valid access token. The token is
// read from the accessToken cookie, falling back to the Authorization header.
func RequireAuth(sessions Authorizer, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := sessions.Authorize(c.Request.Context(), accessToken(c))
		if err != nil {
			utils.RespondError(c, log, err)
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user.Public())
		c.Next()
	}
}

// UserID returns the id stored by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func accessToken(c *gin.Context) string {
	if tok, err := c.Cookie(utils.AccessTokenCookie); err == nil && tok != "" {
		return tok
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
