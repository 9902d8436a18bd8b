package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/service"
)

// AccountFinder resolves the account behind a token.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}

// Gate builds permission middleware. Every gate checks, in order: an identity
// is present, it still resolves to an account, the predicate holds. The
// resolved account is stored in the context for handlers.
type Gate struct {
	authz  *service.Authorizer
	finder AccountFinder
}

func NewGate(authz *service.Authorizer, finder AccountFinder) *Gate {
	return &Gate{authz: authz, finder: finder}
}

// RequireAccount only resolves the account.
func (g *Gate) RequireAccount() echo.MiddlewareFunc {
	return g.require(func(*domain.Account) bool { return true })
}

// RequireOne passes when the account holds perm.
func (g *Gate) RequireOne(perm domain.Permission) echo.MiddlewareFunc {
	return g.require(func(a *domain.Account) bool { return g.authz.HasPermission(a, perm) })
}

// RequireAll passes when the account holds every perm.
func (g *Gate) RequireAll(perms ...domain.Permission) echo.MiddlewareFunc {
	return g.require(func(a *domain.Account) bool { return g.authz.HasAll(a, perms...) })
}

// RequireAny passes when the account holds at least one perm.
func (g *Gate) RequireAny(perms ...domain.Permission) echo.MiddlewareFunc {
	return g.require(func(a *domain.Account) bool { return g.authz.HasAny(a, perms...) })
}

func (g *Gate) require(allowed func(*domain.Account) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return domain.ErrUnauthenticated
			}

			account, err := g.finder.FindByID(c.Request().Context(), claims.AccountID)
			if errors.Is(err, domain.ErrAccountNotFound) {
				return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, domain.ErrAccountNotFound)
			}
			if err != nil {
				return err
			}

			if !allowed(account) {
				return domain.ErrForbidden
			}

			c.Set(ctxKeyAccount, account)
			return next(c)
		}
	}
}
