package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/services"
	"github.com/labstack/echo/v4"
)

// AccountManager is the part of services.AccountService the API uses.
type AccountManager interface {
	Register(ctx context.Context, username string, data services.RegistrationData) (*models.Account, error)
	Activate(ctx context.Context, key string) (bool, error)
}

type CredentialChecker interface {
	Authenticate(ctx context.Context, username, password string) (*services.AuthenticationRecord, error)
}

type ActivationNotifier interface {
	TriggerActivationNotice(ctx context.Context, username string) error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers implements the HTTP endpoints.
type Handlers struct {
	Accounts AccountManager
	Auth     CredentialChecker
	Notifier ActivationNotifier
	DB       Pinger
	Logger   logging.Logger
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,printascii"`
	Password string `json:"password" validate:"required,min=1,max=256"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles POST /accounts.
func (h *Handlers) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req registerRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	a, err := h.Accounts.Register(ctx, req.Username, services.RegistrationData{Password: req.Password})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorDuplicateUser):
			return echo.NewHTTPError(http.StatusConflict, "username already taken")
		case errors.Is(err, common.ErrorValidation):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid registration data")
		}
		h.Logger.Error(ctx, "register failed", "username", req.Username, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	return c.JSON(http.StatusCreated, accountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Role:      a.Role,
		Enabled:   a.Enabled,
		CreatedAt: a.CreatedAt,
	})
}

// Activate handles GET /accounts/activate/:key. Failures carry no detail so
// the response does not reveal which keys exist.
func (h *Handlers) Activate(c echo.Context) error {
	ctx := c.Request().Context()

	ok, err := h.Accounts.Activate(ctx, c.Param("key"))
	if err != nil {
		h.Logger.Error(ctx, "activation failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "activation failed")
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"activated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"activated": true})
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CheckCredentials handles POST /auth/check.
func (h *Handlers) CheckCredentials(c echo.Context) error {
	ctx := c.Request().Context()

	var req credentialsRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	rec, err := h.Auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			h.Logger.Info(ctx, "authentication rejected", "username", req.Username, "reason", err.Error())
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		h.Logger.Error(ctx, "authentication failed", "username", req.Username, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "authentication failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"username":    rec.Username,
		"authorities": rec.Authorities,
	})
}

// ActivationNotice handles the deferred task POST /task/mail/activate. Any
// non-2xx answer makes the dispatcher retry, so a task that can never
// succeed is acknowledged with 200.
func (h *Handlers) ActivationNotice(c echo.Context) error {
	ctx := c.Request().Context()

	username := c.FormValue(common.UsernameParam)
	if username == "" {
		h.Logger.Warn(ctx, "activation notice without username dropped", "task_id", c.Get(CtxTaskID))
		return c.NoContent(http.StatusOK)
	}

	if err := h.Notifier.TriggerActivationNotice(ctx, username); err != nil {
		h.Logger.Error(ctx, "activation notice failed",
			"username", username, "task_id", c.Get(CtxTaskID), "delivery", errors.Is(err, common.ErrorDelivery), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "notification failed")
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handlers) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Ready answers 503 while the database is unreachable.
func (h *Handlers) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		h.Logger.Warn(ctx, "readiness check failed", "error", err)
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
