package api

import (
	"net/http"
	"strings"

	"github.com/Almirante-Ming/Rose/token"
	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// BearerAuth verifies the HS256 token in the Authorization header and puts
// its payload in the context.
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")

		if !found || len(strings.TrimSpace(raw)) == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
			c.Abort()
			return
		}

		payload, err := token.Verify(secret, strings.TrimSpace(raw))

		if err != nil || !payload.HasUserID {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication"})
			c.Abort()
			return
		}

		c.Set(claimsKey, payload)
	}
}

// RequireLevel rejects callers whose access level is below level.
func RequireLevel(level int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims(c).AccessLevel < level {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			c.Abort()
			return
		}
	}
}

func claims(c *gin.Context) token.Payload {
	return c.MustGet(claimsKey).(token.Payload)
}
