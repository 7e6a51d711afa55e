package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/todo-web/internal/constants"
	"github.com/yukikurage/todo-web/internal/dto"
	apierrors "github.com/yukikurage/todo-web/internal/errors"
	"github.com/yukikurage/todo-web/internal/middleware"
	"github.com/yukikurage/todo-web/internal/services"
)

const (
	registerTemplate = "register.html"
	loginTemplate    = "login.html"

	registeredMessage = "Registration successful, please log in."
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type credentialsForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	c.HTML(http.StatusOK, registerTemplate, dto.AuthPage{})
}

// Register creates an account and sends the user to the login page.
func (h *AuthHandler) Register(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.BadRequest(c, "Invalid form submission")
		return
	}

	_, err := h.authService.Register(services.RegisterInput{
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		status, ok := registerErrorStatus(err)
		if !ok {
			apierrors.InternalError(c, err)
			return
		}
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.HTML(status, registerTemplate, dto.AuthPage{
			Username: form.Username,
			Error:    userMessage(err),
		})
		return
	}

	addFlash(c, registeredMessage)
	redirect(c, middleware.LoginPath)
}

// LoginForm renders the login page with any pending flash messages.
func (h *AuthHandler) LoginForm(c *gin.Context) {
	flashes, err := popFlashes(c)
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}
	c.HTML(http.StatusOK, loginTemplate, dto.AuthPage{Flashes: flashes})
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.BadRequest(c, "Invalid form submission")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Username: form.Username,
		Password: form.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		var status int
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			status = http.StatusUnauthorized
		case errors.Is(err, services.ErrTooManyAttempts):
			status = http.StatusTooManyRequests
		default:
			apierrors.InternalError(c, err)
			return
		}
		c.HTML(status, loginTemplate, dto.AuthPage{
			Username: form.Username,
			Error:    err.Error(),
		})
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, user.ID)
	redirect(c, middleware.IndexPath)
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	redirect(c, middleware.LoginPath)
}

func registerErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, services.ErrInvalidUsername),
		errors.Is(err, services.ErrPasswordTooShort):
		return http.StatusBadRequest, true
	case errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict, true
	case errors.Is(err, services.ErrFailedToHashPassword):
		return http.StatusInternalServerError, true
	default:
		return 0, false
	}
}

// userMessage strips wrapped causes from sentinel errors shown in forms.
func userMessage(err error) string {
	for _, sentinel := range []error{
		services.ErrInvalidUsername,
		services.ErrPasswordTooShort,
		services.ErrUsernameTaken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
