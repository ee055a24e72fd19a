package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/histotrack/pathlab-api/internal/models"
	"github.com/histotrack/pathlab-api/internal/service"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
	"github.com/histotrack/pathlab-api/pkg/response"
)

// ContextActorKey is the gin context key storing the resolved actor claims.
const ContextActorKey = "currentActor"

// Actor resolves the acting identity from the bearer token and stamps it
// onto the request context for audit attribution. Identity issuance is
// external; this service only verifies the signature. When required is
// false, requests without a token proceed as "system".
func Actor(secret string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				response.Error(c, appErrors.ErrUnauthorized)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			if required {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
				c.Abort()
				return
			}
			c.Next()
			return
		}

		claims, err := parseActorToken(parts[1], secret)
		if err != nil {
			if required {
				response.Error(c, err)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set(ContextActorKey, claims)
		c.Request = c.Request.WithContext(service.ContextWithActor(c.Request.Context(), claims))
		c.Next()
	}
}

func parseActorToken(raw, secret string) (models.ActorClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.ActorClaims{}, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.ActorClaims{}, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	claims := models.ActorClaims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if name, ok := mapClaims["name"].(string); ok {
		claims.FullName = name
	}
	if claims.Subject == "" {
		return models.ActorClaims{}, appErrors.Clone(appErrors.ErrUnauthorized, "token missing subject")
	}
	return claims, nil
}
