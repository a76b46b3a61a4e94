package handler

import (
	"context"
	"net/http"
	"time"

	"kelabpetani/internal/auth"
	"kelabpetani/internal/middleware"
	"kelabpetani/internal/service"
	"kelabpetani/pkg/response"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const stateKey = "oauth_state"

// IdentityProvider is the OpenID Connect login flow.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
}

type AuthHandler struct {
	provider    IdentityProvider
	userService service.UserService
	secret      []byte
	tokenTTL    time.Duration
	log         *zap.Logger
}

func NewAuthHandler(provider IdentityProvider, userService service.UserService, secret []byte, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		provider:    provider,
		userService: userService,
		secret:      secret,
		tokenTTL:    auth.DefaultTokenTTL,
		log:         log,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, g Guards) {
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/login", h.Login)
		authGroup.GET("/callback", h.Callback)
		authGroup.POST("/logout", h.Logout)
	}
	router.GET("/api/me", g.Auth, h.GetMe)
}

// Login redirects to the identity provider
// @Summary      Start login
// @Tags         auth
// @Success      302
// @Router       /auth/login [get]
func (h *AuthHandler) Login(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "Login is not configured"))
		return
	}
	state, err := auth.NewState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to start login"))
		return
	}

	sess := sessions.Default(c)
	sess.Set(stateKey, state)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to start login"))
		return
	}
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback completes the login and sets the access token cookie
// @Summary      Login callback
// @Tags         auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "OAuth state"
// @Success      200    {object}  response.Response{data=service.UserResponse}
// @Failure      400    {object}  response.Response
// @Failure      401    {object}  response.Response
// @Router       /auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "Login is not configured"))
		return
	}

	sess := sessions.Default(c)
	expected, _ := sess.Get(stateKey).(string)
	sess.Delete(stateKey)
	_ = sess.Save()
	if expected == "" || c.Query("state") != expected {
		badRequest(c, "Invalid login state")
		return
	}

	code := c.Query("code")
	if code == "" {
		badRequest(c, "Authorization code is missing")
		return
	}

	identity, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		h.log.Warn("login exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Login failed"))
		return
	}

	user, err := h.userService.UpsertFromIdentity(c.Request.Context(), *identity)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := auth.IssueToken(h.secret, user.ID, user.IsAdmin, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to issue token"))
		return
	}
	middleware.SetTokenCookie(c, token, int(h.tokenTTL.Seconds()))

	resp, err := h.userService.GetUserByID(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resp))
}

// Logout clears the access token cookie
// @Summary      Logout
// @Tags         auth
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out successfully"))
}

// GetMe returns the signed-in user
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	user, err := h.userService.GetUserByID(c.Request.Context(), a.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
