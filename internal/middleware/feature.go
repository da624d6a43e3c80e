package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/meeting-assignments-api/pkg/errors"
	"github.com/noah-isme/meeting-assignments-api/pkg/response"
)

// FeatureGate answers 404 FEATURE_DISABLED while enabled is false.
func FeatureGate(name string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, name+" is disabled"))
			c.Abort()
			return
		}
		c.Next()
	}
}
