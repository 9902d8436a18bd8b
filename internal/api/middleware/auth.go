package middleware

import (
	"errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/service"
)

const (
	ctxKeyClaims  = "claims"
	ctxKeyAccount = "account"
)

// AccessTokenParser verifies bearer access tokens.
type AccessTokenParser interface {
	ParseAccess(token string) (*service.AccessClaims, error)
}

// Auth validates the bearer access token and stores its claims in the context.
// A missing or malformed header yields ErrUnauthenticated; a bad or expired
// token yields 401 "invalid token".
func Auth(tokens AccessTokenParser) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: ctxKeyClaims,
		ParseTokenFunc: func(_ echo.Context, auth string) (interface{}, error) {
			return tokens.ParseAccess(auth)
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			var missing *echojwt.TokenExtractionError
			if errors.As(err, &missing) {
				return domain.ErrUnauthenticated
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		},
	})
}

// ClaimsFrom returns the access claims stored by Auth.
func ClaimsFrom(c echo.Context) (*service.AccessClaims, bool) {
	claims, ok := c.Get(ctxKeyClaims).(*service.AccessClaims)
	return claims, ok && claims != nil
}

// AccountFrom returns the account resolved by a permission gate.
func AccountFrom(c echo.Context) (*domain.Account, bool) {
	account, ok := c.Get(ctxKeyAccount).(*domain.Account)
	return account, ok && account != nil
}
