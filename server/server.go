package server

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// NewEcho returns an echo instance with panic recovery, request ids and
// request logging installed.
func NewEcho(logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(Recovery(logger))
	e.Use(RequestID())
	e.Use(Logger(logger))
	return e
}
