package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// InternalHeader carries the pre-shared secret for trusted internal
// callers. Distinct from per-user credentials on purpose.
const InternalHeader = "X-Internal-Token"

// forbiddenBody is the single response for every rejection on the
// internal surface, so a caller cannot tell a bad secret from a
// malformed request.
var forbiddenBody = gin.H{"error": "forbidden"}

// Internal guards the control API with a constant-time secret check.
func Internal(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader(InternalHeader))
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, forbiddenBody)
			return
		}
		c.Next()
	}
}

// Forbidden writes the same opaque rejection used by Internal; control
// handlers call it for malformed bodies.
func Forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, forbiddenBody)
}
