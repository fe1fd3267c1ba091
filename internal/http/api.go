package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pricepilot/internal/domain"
	"pricepilot/internal/service"
)

// Handler wires HTTP routes to the account service.
type Handler struct {
	users        service.UserService
	auth         *Authenticator
	gate         GateConfig
	cookieSecure bool
	logger       logrus.FieldLogger
	now          func() time.Time
}

// Options configures a Handler. Logger and Gate fall back to defaults.
type Options struct {
	Users        service.UserService
	Tokens       service.TokenService
	Gate         GateConfig
	CookieSecure bool
	Logger       logrus.FieldLogger
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		users:        opts.Users,
		auth:         NewAuthenticator(opts.Tokens),
		gate:         opts.Gate,
		cookieSecure: opts.CookieSecure,
		logger:       opts.Logger,
		now:          time.Now,
	}
	if len(h.gate.Prefixes) == 0 {
		h.gate.Prefixes = DefaultGateConfig().Prefixes
	}
	if h.gate.LoginPath == "" {
		h.gate.LoginPath = DefaultGateConfig().LoginPath
	}
	if h.logger == nil {
		h.logger = logrus.StandardLogger()
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(recovery(h.logger), requestLogger(h.logger), corsMiddleware(), RouteGate(h.auth, h.gate))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/logout", h.logout)
	}

	user := router.Group("/user", RequireAuth(h.auth))
	{
		user.GET("/profile", h.profile)
		user.POST("/password", h.changePassword)
		user.POST("/profile-image", h.updateProfileImage)
		user.GET("/saved-products", h.listSavedProducts)
		user.POST("/saved-products", h.addSavedProduct)
		user.DELETE("/saved-products/:productId", h.removeSavedProduct)
	}

	router.GET("/dashboard", h.dashboard)
	router.GET("/dashboard/*path", h.dashboard)
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type addSavedProductRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Source    string `json:"source"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and password are required"})
		return
	}

	result, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setTokenCookie(c, result)
	c.JSON(http.StatusCreated, authToResponse(result))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.users.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		if domain.KindOf(err) == domain.KindAuthentication {
			// one body for unknown email and wrong password
			c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidCredentials.Message})
			return
		}
		h.respondError(c, err)
		return
	}

	h.setTokenCookie(c, result)
	c.JSON(http.StatusOK, authToResponse(result))
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookieName, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), UserIDFromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profileToResponse(user)})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current and new password are required"})
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), UserIDFromContext(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *Handler) updateProfileImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxProfileImageBytes+1<<20)

	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("image must be at most %d bytes", service.MaxProfileImageBytes)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.respondError(c, domain.Dependency("open uploaded image", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxProfileImageBytes+1))
	if err != nil {
		h.respondError(c, domain.Dependency("read uploaded image", err))
		return
	}

	image, err := h.users.UpdateProfileImage(c.Request.Context(), UserIDFromContext(c), service.ProfileImage{
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Profile image updated successfully",
		"profileImage": image,
	})
}

func (h *Handler) listSavedProducts(c *gin.Context) {
	products, err := h.users.ListSavedProducts(c.Request.Context(), UserIDFromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]SavedProductResponse, len(products))
	for i := range products {
		resp[i] = savedProductToResponse(products[i])
	}
	c.JSON(http.StatusOK, gin.H{"savedProducts": resp})
}

func (h *Handler) addSavedProduct(c *gin.Context) {
	var req addSavedProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}

	product, added, err := h.users.AddSavedProduct(c.Request.Context(), UserIDFromContext(c), req.ProductID, req.Source)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"message": "Product already saved", "alreadySaved": true})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":      "Product saved successfully",
		"savedProduct": savedProductToResponse(product),
	})
}

func (h *Handler) removeSavedProduct(c *gin.Context) {
	removed, err := h.users.RemoveSavedProduct(c.Request.Context(), UserIDFromContext(c), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusOK, gin.H{"message": "Product already removed", "alreadyRemoved": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed successfully"})
}

// dashboard is the landing point behind the route gate; pages are rendered elsewhere.
func (h *Handler) dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"userId": UserIDFromContext(c),
		"path":   c.Request.URL.Path,
	})
}

func (h *Handler) setTokenCookie(c *gin.Context, result *service.AuthResult) {
	maxAge := int(result.ExpiresAt.Sub(h.now()).Seconds())
	if maxAge <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookieName, result.Token, maxAge, "/", "", h.cookieSecure, true)
}
