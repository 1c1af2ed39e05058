package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-performance-api/pkg/errors"
	"github.com/noah-isme/sma-performance-api/pkg/response"
)

// FeatureFlag answers 404 for every route in the group while the feature is off.
func FeatureFlag(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "feature disabled"))
			c.Abort()
			return
		}
		c.Next()
	}
}
