package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-performance-api/internal/middleware"
	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

// respondWithMeta attaches cache and timing metadata to a successful response.
func respondWithMeta(c *gin.Context, status int, data interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, status, data, meta)
}
