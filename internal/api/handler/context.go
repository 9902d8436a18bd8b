package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blogify/blog-api/internal/api/middleware"
	"github.com/blogify/blog-api/internal/core/domain"
)

// actor returns the account resolved by the permission gate. Routes using it
// must be mounted behind a gate.
func actor(c echo.Context) (*domain.Account, error) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return account, nil
}

// bindAndValidate decodes the body into req and runs the struct rules.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
