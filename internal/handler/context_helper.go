package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-room-schedule/internal/middleware"
	"github.com/noah-isme/sma-room-schedule/internal/models"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
)

// ClientHeader identifies a presentation client for the interaction cooldown.
const ClientHeader = "X-Client-ID"

func criteriaFromQuery(c *gin.Context) (models.FilterCriteria, error) {
	var criteria models.FilterCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		return models.FilterCriteria{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter query")
	}
	return criteria, nil
}

func actorFromContext(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.Subject
	}
	return ""
}

func clientID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(ClientHeader)); id != "" {
		return id
	}
	return c.ClientIP()
}

func responseMeta(c *gin.Context, cacheHit bool, fingerprint string) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetFingerprint(c, fingerprint)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta
}
