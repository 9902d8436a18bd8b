package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
)

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// withActor mimics a permission gate having resolved the caller.
func withActor(c echo.Context, account *domain.Account) {
	c.Set("account", account)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

var testCreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleAccount() *domain.Account {
	return &domain.Account{
		ID:          "acc_1",
		Name:        "Ann",
		Email:       "ann@example.com",
		Role:        domain.RoleUser,
		Permissions: []domain.Permission{domain.PermCreatePost},
		CreatedAt:   testCreatedAt,
	}
}

type stubAuthService struct {
	signupFn  func(ctx context.Context, in ports.SignupInput) (*domain.Account, error)
	loginFn   func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	refreshFn func(ctx context.Context, token string) (string, error)
	verifyFn  func(ctx context.Context, token string) error
	statusFn  func(ctx context.Context, email string) (bool, error)
	profileFn func(ctx context.Context, id string) (*domain.Account, error)
	logoutFn  func(ctx context.Context, id string) error
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Account, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (string, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, token string) error {
	return s.verifyFn(ctx, token)
}

func (s *stubAuthService) VerificationStatus(ctx context.Context, email string) (bool, error) {
	return s.statusFn(ctx, email)
}

func (s *stubAuthService) Profile(ctx context.Context, id string) (*domain.Account, error) {
	return s.profileFn(ctx, id)
}

func (s *stubAuthService) Logout(ctx context.Context, id string) error {
	return s.logoutFn(ctx, id)
}

type stubAccountService struct {
	listFn   func(ctx context.Context) ([]*domain.Account, error)
	deleteFn func(ctx context.Context, actorID, targetID string) error
	verifyFn func(ctx context.Context, targetID string) error
	roleFn   func(ctx context.Context, actorID, targetID string, role domain.Role) (*domain.Account, error)
}

func (s *stubAccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.listFn(ctx)
}

func (s *stubAccountService) Delete(ctx context.Context, actorID, targetID string) error {
	return s.deleteFn(ctx, actorID, targetID)
}

func (s *stubAccountService) Verify(ctx context.Context, targetID string) error {
	return s.verifyFn(ctx, targetID)
}

func (s *stubAccountService) ChangeRole(ctx context.Context, actorID, targetID string, role domain.Role) (*domain.Account, error) {
	return s.roleFn(ctx, actorID, targetID, role)
}

type stubPostService struct {
	listFn   func(ctx context.Context) ([]*domain.Post, error)
	getFn    func(ctx context.Context, id string) (*domain.Post, error)
	createFn func(ctx context.Context, authorID, title, body string) (*domain.Post, error)
	updateFn func(ctx context.Context, id, title, body string) (*domain.Post, error)
	deleteFn func(ctx context.Context, id string) error
}

func (s *stubPostService) List(ctx context.Context) ([]*domain.Post, error) {
	return s.listFn(ctx)
}

func (s *stubPostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.getFn(ctx, id)
}

func (s *stubPostService) Create(ctx context.Context, authorID, title, body string) (*domain.Post, error) {
	return s.createFn(ctx, authorID, title, body)
}

func (s *stubPostService) Update(ctx context.Context, id, title, body string) (*domain.Post, error) {
	return s.updateFn(ctx, id, title, body)
}

func (s *stubPostService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
