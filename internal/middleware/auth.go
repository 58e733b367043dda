package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/pkg/auth"
	"github.com/jwalitptl/carelink-api/pkg/errors"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
)

const ContextPrincipal = "principal"

type AuthMiddleware struct {
	verifier auth.TokenVerifier
}

func NewAuthMiddleware(verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate verifies the bearer token and stores the caller in both the
// gin context and the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized("Authorization header is expected", err))
			return
		}

		principal, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized("Invalid token", err))
			return
		}

		c.Set(ContextPrincipal, principal)
		c.Request = c.Request.WithContext(auth.NewContext(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireRoles lets through callers holding at least one of roles.
func (m *AuthMiddleware) RequireRoles(roles ...model.Role) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok || !principal.HasAnyRole(names...) {
			log.Debug().Strs("required", names).Str("path", c.FullPath()).Msg("Caller lacks required role")
			httputil.RespondWithError(c, errors.Unauthorized("Not authorized", nil))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller set by Authenticate.
func PrincipalFrom(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok
}
