package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/w3cp/w3cp/internal/errs"
	"github.com/w3cp/w3cp/internal/server"
)

// AuthenticatedKey is set in the Echo context once a request passed
// RequireAuth with a valid token.
const AuthenticatedKey = "authenticated"

// AuthMiddleware protects the simulator API with the static token from
// the auth config.
type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
	}
}

// RequireAuth rejects requests without "Authorization: Bearer <token>".
// Without an auth config every request passes.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	cfg := auth.server.Config.Auth
	if cfg == nil {
		return next
	}
	expected := []byte(cfg.APIToken)

	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			GetLogger(c).Warn().
				Str("function", "RequireAuth").
				Bool("token_present", ok).
				Msg("rejected unauthenticated request")
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		c.Set(AuthenticatedKey, true)
		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IsAuthenticated reports whether RequireAuth accepted the request.
func IsAuthenticated(c echo.Context) bool {
	ok, _ := c.Get(AuthenticatedKey).(bool)
	return ok
}
