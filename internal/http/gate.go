package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// GateConfig lists the browser paths that need a session.
type GateConfig struct {
	Prefixes  []string
	LoginPath string
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		Prefixes:  []string{"/dashboard"},
		LoginPath: "/login",
	}
}

func (g GateConfig) protects(path string) bool {
	for _, prefix := range g.Prefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// LoginRedirect builds the login URL that returns the browser to path afterwards.
func (g GateConfig) LoginRedirect(path string) string {
	return g.LoginPath + "?" + url.Values{"returnUrl": {path}}.Encode()
}

// RouteGate redirects unauthenticated navigation to protected paths to the login page.
// Other paths pass through untouched.
func RouteGate(auth *Authenticator, cfg GateConfig) gin.HandlerFunc {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultGateConfig().LoginPath
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !cfg.protects(path) {
			c.Next()
			return
		}

		userID, err := auth.Authenticate(c.Request)
		if err != nil {
			c.Redirect(http.StatusFound, cfg.LoginRedirect(path))
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}
