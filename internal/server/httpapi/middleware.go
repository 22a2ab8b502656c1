package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/auth"
	"github.com/labstack/echo/v4"
)

// CtxTaskID is the echo context key holding the ID of the task being
// delivered.
const CtxTaskID = "task_id"

// TaskToken admits only requests carrying a valid task token for queue.
func TaskToken(secret []byte, queue string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(common.TaskTokenHeaderName)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing task token")
			}

			claims, err := auth.ParseTaskToken(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired task token")
			}
			if claims.Queue != queue {
				return echo.NewHTTPError(http.StatusUnauthorized, "task token issued for another queue")
			}

			c.Set(CtxTaskID, claims.TaskID)
			return next(c)
		}
	}
}

// RequestLogger logs one line per request once the response is written.
func RequestLogger(l logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			args := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"latency", time.Since(start).String(),
			}
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				args = append(args, "request_id", id)
			}

			switch {
			case status >= http.StatusInternalServerError:
				l.Error(req.Context(), "request", args...)
			case status >= http.StatusBadRequest:
				l.Warn(req.Context(), "request", args...)
			default:
				l.Info(req.Context(), "request", args...)
			}
			return nil
		}
	}
}
