package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pricepilot/internal/domain"
	"pricepilot/internal/service"
)

const (
	// TokenCookieName is the session cookie carrying the bearer token.
	TokenCookieName = "token"

	userIDKey = "pricepilot.user_id"
)

// Authenticator resolves a request to the user id embedded in its token.
// It checks signature and expiry only and never reads the user store.
type Authenticator struct {
	tokens service.TokenService
}

func NewAuthenticator(tokens service.TokenService) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Authenticate prefers the session cookie and falls back to an Authorization bearer
// header when the cookie is absent or does not verify.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	for _, token := range tokensFromRequest(r) {
		if userID, err := a.tokens.Verify(token); err == nil {
			return userID, nil
		}
	}
	return "", domain.ErrUnauthorized
}

func tokensFromRequest(r *http.Request) []string {
	var tokens []string
	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		tokens = append(tokens, cookie.Value)
	}
	if bearer := bearerToken(r); bearer != "" {
		tokens = append(tokens, bearer)
	}
	return tokens
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// RequireAuth rejects API requests without a valid token with 401.
func RequireAuth(auth *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.Authenticate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id, or "" when there is none.
func UserIDFromContext(c *gin.Context) string {
	return c.GetString(userIDKey)
}
