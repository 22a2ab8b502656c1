package httpapi

import (
	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
)

// Deps is what the router needs besides the handlers.
type Deps struct {
	Handlers   *Handlers
	TaskSecret []byte
	TaskQueue  string
	TaskURL    string
}

// Register installs middleware and routes on e.
func Register(e *echo.Echo, d *Deps) {
	e.Validator = newRequestValidator()

	e.Use(ecM.Recover(), ecM.RequestID(), RequestLogger(d.Handlers.Logger))

	e.GET("/health/live", d.Handlers.Live)
	e.GET("/health/ready", d.Handlers.Ready)

	e.POST("/accounts", d.Handlers.Register)
	e.GET("/accounts/activate/:key", d.Handlers.Activate)
	e.POST("/auth/check", d.Handlers.CheckCredentials)

	e.POST(d.TaskURL, d.Handlers.ActivationNotice, TaskToken(d.TaskSecret, d.TaskQueue))
}
