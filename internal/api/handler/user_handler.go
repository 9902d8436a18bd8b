package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
)

// UserHandler serves account administration.
type UserHandler struct {
	accounts ports.AccountService
}

func NewUserHandler(accounts ports.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// List returns every account.
//
// @Summary      List accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   accountResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/auth/users [get]
func (h *UserHandler) List(c echo.Context) error {
	accounts, err := h.accounts.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponses(accounts))
}

// Delete removes an account.
//
// @Summary      Delete an account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/auth/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}

	if err := h.accounts.Delete(c.Request().Context(), me.ID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "user deleted successfully"})
}

// Verify marks an account verified without the mailed token.
//
// @Summary      Verify an account manually
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/auth/users/{id}/verify [put]
func (h *UserHandler) Verify(c echo.Context) error {
	if err := h.accounts.Verify(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "user verified successfully"})
}

// ChangeRole sets an account's role and re-derives its permissions.
//
// @Summary      Change an account role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Account id"
// @Param        body  body      changeRoleRequest  true  "New role (user or admin)"
// @Success      200   {object}  roleChangedResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/auth/users/{id}/role [put]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}

	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.accounts.ChangeRole(c.Request().Context(), me.ID, c.Param("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleChangedResponse{
		Message: "user role updated successfully",
		User:    toAccountResponse(account),
	})
}
