package handler

import (
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// render writes component as the response body with the given status.
func render(c echo.Context, status int, component templ.Component) error {
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(c.Response(), c.Request())
	return nil
}
