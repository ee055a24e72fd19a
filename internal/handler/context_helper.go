package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/histotrack/pathlab-api/internal/middleware"
	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

func actorFromContext(c *gin.Context) *models.ActorClaims {
	value, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return nil
	}
	claims, ok := value.(models.ActorClaims)
	if !ok {
		return nil
	}
	return &claims
}

func pageParams(c *gin.Context) (int, int) {
	page := 1
	size := 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

func boolQuery(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

func dateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, name+" must be a YYYY-MM-DD or RFC 3339 date")
}
