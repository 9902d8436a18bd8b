package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/service"
)

func newTokens() *service.TokenIssuer {
	return service.NewTokenIssuer(service.TokenIssuerConfig{
		AccessSecret:  "secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
	})
}

func runAuth(t *testing.T, header string, next echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, Auth(newTokens())(next)(c)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	signed, err := newTokens().IssueAccess(&domain.Account{ID: "acc_1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	called := false
	rec, err := runAuth(t, "Bearer "+signed, func(c echo.Context) error {
		called = true
		claims, ok := ClaimsFrom(c)
		if !ok {
			t.Fatalf("claims not set")
		}
		if claims.AccountID != "acc_1" || claims.Role != "admin" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	_, err := runAuth(t, "", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	_, err := runAuth(t, "Token abc", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	_, err := runAuth(t, "Bearer not-a-jwt", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	refresh, _ := newTokens().IssueRefresh(&domain.Account{ID: "acc_1"})

	_, err := runAuth(t, "Bearer "+refresh, func(c echo.Context) error {
		t.Fatalf("refresh token must not authenticate requests")
		return nil
	})
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}
