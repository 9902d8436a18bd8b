package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	accounts map[string]*domain.Account
	seq      int

	// casConflicts makes the next N CompareAndSetLoginState calls report a lost race.
	casConflicts int
	casCalls     int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Permissions = append([]domain.Permission(nil), a.Permissions...)
	if a.Login.LockUntil != nil {
		until := *a.Login.LockUntil
		clone.Login.LockUntil = &until
	}
	return &clone
}

func (r *stubAccountRepo) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.Email == account.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.seq++
	copy := cloneAccount(account)
	copy.ID = "acc_" + strconv.Itoa(r.seq)
	r.accounts[copy.ID] = copy
	return cloneAccount(copy), nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByVerificationToken(_ context.Context, token string) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.VerificationToken != "" && a.VerificationToken == token {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) List(_ context.Context) ([]*domain.Account, error) {
	out := make([]*domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, cloneAccount(a))
	}
	return out, nil
}

func (r *stubAccountRepo) ExistsWithRole(_ context.Context, role domain.Role) (bool, error) {
	for _, a := range r.accounts {
		if a.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) MarkVerified(_ context.Context, id string) error {
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Verified = true
	a.VerificationToken = ""
	return nil
}

func (r *stubAccountRepo) UpdateRole(_ context.Context, id string, role domain.Role, perms []domain.Permission) error {
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Role = role
	a.Permissions = append([]domain.Permission(nil), perms...)
	return nil
}

func (r *stubAccountRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func sameLoginState(a, b domain.LoginState) bool {
	if a.FailedAttempts != b.FailedAttempts {
		return false
	}
	if a.LockUntil == nil || b.LockUntil == nil {
		return a.LockUntil == nil && b.LockUntil == nil
	}
	return a.LockUntil.Equal(*b.LockUntil)
}

func (r *stubAccountRepo) CompareAndSetLoginState(_ context.Context, id string, expected, next domain.LoginState) (bool, error) {
	r.casCalls++
	a, ok := r.accounts[id]
	if !ok {
		return false, nil
	}
	if r.casConflicts > 0 {
		r.casConflicts--
		// Simulate a concurrent failure landing first.
		a.Login.FailedAttempts++
		return false, nil
	}
	if !sameLoginState(a.Login, expected) {
		return false, nil
	}
	a.Login = next
	return true, nil
}

func (r *stubAccountRepo) RecordLogin(_ context.Context, id string, at time.Time, hash string) error {
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Login = domain.LoginState{}
	a.LastLoginAt = &at
	a.RefreshTokenHash = hash
	return nil
}

func (r *stubAccountRepo) SetRefreshTokenHash(_ context.Context, id string, hash string) error {
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.RefreshTokenHash = hash
	return nil
}

type stubMailer struct {
	err  error
	sent []ports.VerificationMessage
}

func (m *stubMailer) SendVerification(_ context.Context, msg ports.VerificationMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time          { return c.t }
func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuthSvc(repo *stubAccountRepo, mailer *stubMailer, clock *fixedClock) *AuthService {
	tokens := NewTokenIssuer(TokenIssuerConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	tokens.now = clock.Now
	svc := NewAuthService(repo, tokens, mailer, domain.DefaultPermissionTable(),
		AuthServiceConfig{BcryptCost: bcrypt.MinCost}, zerolog.Nop())
	svc.now = clock.Now
	return svc
}

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func signup(t *testing.T, svc *AuthService, email string) *domain.Account {
	t.Helper()
	acc, err := svc.Signup(context.Background(), ports.SignupInput{Name: "Ann", Email: email, Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	return acc
}

func signupVerified(t *testing.T, svc *AuthService, repo *stubAccountRepo, email string) *domain.Account {
	t.Helper()
	acc := signup(t, svc, email)
	if err := repo.MarkVerified(context.Background(), acc.ID); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	return acc
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAuthService_Signup_Success(t *testing.T) {
	repo := newStubAccountRepo()
	mailer := &stubMailer{}
	svc := newAuthSvc(repo, mailer, newClock())

	acc, err := svc.Signup(context.Background(), ports.SignupInput{Name: " Ann ", Email: " Ann@Example.COM ", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if acc.Email != "ann@example.com" {
		t.Fatalf("expected normalized email, got %q", acc.Email)
	}
	if acc.Role != domain.RoleUser {
		t.Fatalf("unexpected role: %s", acc.Role)
	}
	if len(acc.Permissions) != 1 || acc.Permissions[0] != domain.PermCreatePost {
		t.Fatalf("unexpected permissions: %v", acc.Permissions)
	}
	if acc.Verified {
		t.Fatalf("new account must be unverified")
	}
	if len(acc.VerificationToken) != 32 {
		t.Fatalf("expected 32 hex char token, got %q", acc.VerificationToken)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("Passw0rd!")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].Token != acc.VerificationToken || mailer.sent[0].To != acc.Email {
		t.Fatalf("unexpected verification messages: %+v", mailer.sent)
	}
}

func TestAuthService_Signup_Duplicate(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAuthSvc(repo, &stubMailer{}, newClock())

	signup(t, svc, "bob@example.com")
	_, err := svc.Signup(context.Background(), ports.SignupInput{Name: "Bob", Email: "BOB@example.com", Password: "Passw0rd!"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_Signup_MailerFailureSurfaces(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAuthSvc(repo, &stubMailer{err: errors.New("queue down")}, newClock())

	_, err := svc.Signup(context.Background(), ports.SignupInput{Name: "Ann", Email: "ann@example.com", Password: "Passw0rd!"})
	if err == nil {
		t.Fatalf("expected error when verification cannot be queued")
	}
}

func TestAuthService_Signup_Validation(t *testing.T) {
	svc := newAuthSvc(newStubAccountRepo(), &stubMailer{}, newClock())

	_, err := svc.Signup(context.Background(), ports.SignupInput{Name: "", Email: "a@b.c", Password: "x"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthService_Signup_PasswordTooLong(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAuthSvc(repo, &stubMailer{}, newClock())

	password := "Abc123!@" + strings.Repeat("a", 72)
	_, err := svc.Signup(context.Background(), ports.SignupInput{Name: "Ann", Email: "ann@example.com", Password: password})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := repo.FindByEmail(context.Background(), "ann@example.com"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("no account should be stored, got %v", err)
	}
}

func TestAuthService_VerifyThenLogin(t *testing.T) {
	repo := newStubAccountRepo()
	clock := newClock()
	svc := newAuthSvc(repo, &stubMailer{}, clock)
	ctx := context.Background()

	acc := signup(t, svc, "ann@example.com")

	if _, err := svc.Login(ctx, "ann@example.com", "Passw0rd!"); !errors.Is(err, domain.ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}

	if err := svc.VerifyEmail(ctx, acc.VerificationToken); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := svc.VerifyEmail(ctx, acc.VerificationToken); !errors.Is(err, domain.ErrVerificationTokenInvalid) {
		t.Fatalf("expected consumed token to be invalid, got %v", err)
	}

	res, err := svc.Login(ctx, "ANN@example.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", res)
	}
	stored := repo.accounts[acc.ID]
	if stored.RefreshTokenHash != HashToken(res.RefreshToken) {
		t.Fatalf("stored refresh digest does not match issued token")
	}
	if stored.LastLoginAt == nil || !stored.LastLoginAt.Equal(clock.Now()) {
		t.Fatalf("expected last login to be stamped, got %v", stored.LastLoginAt)
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("access-secret"), nil
	}, jwt.WithTimeFunc(clock.Now))
	if err != nil || !parsed.Valid {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.AccountID != acc.ID || claims.Role != string(domain.RoleUser) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(clock.Now()); got != time.Hour {
		t.Fatalf("expected 1h access lifetime, got %v", got)
	}
}

func TestAuthService_VerifyEmail_AlreadyVerified(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAuthSvc(repo, &stubMailer{}, newClock())

	acc := signup(t, svc, "ann@example.com")
	// Verified flag set while the token is still held.
	repo.accounts[acc.ID].Verified = true

	if err := svc.VerifyEmail(context.Background(), acc.VerificationToken); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	if err := svc.VerifyEmail(context.Background(), ""); !errors.Is(err, domain.ErrVerificationTokenInvalid) {
		t.Fatalf("expected ErrVerificationTokenInvalid for empty token, got %v", err)
	}
}

func TestNewAuthService_PreparesDummyHash(t *testing.T) {
	svc := newAuthSvc(newStubAccountRepo(), &stubMailer{}, newClock())

	cost, err := bcrypt.Cost(svc.dummy)
	if err != nil {
		t.Fatalf("dummy hash must exist before the first login: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Fatalf("dummy hash should use the configured cost, got %d", cost)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc := newAuthSvc(newStubAccountRepo(), &stubMailer{}, newClock())

	if _, err := svc.Login(context.Background(), "ghost@example.com", "Passw0rd!"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_LocksAfterFiveFailures(t *testing.T) {
	repo := newStubAccountRepo()
	clock := newClock()
	svc := newAuthSvc(repo, &stubMailer{}, clock)
	ctx := context.Background()

	acc := signupVerified(t, svc, repo, "ann@example.com")

	for i := 1; i <= 5; i++ {
		if _, err := svc.Login(ctx, "ann@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	stored := repo.accounts[acc.ID]
	if stored.Login.FailedAttempts != 5 {
		t.Fatalf("expected 5 failed attempts, got %d", stored.Login.FailedAttempts)
	}
	if stored.Login.LockUntil == nil || !stored.Login.LockUntil.Equal(clock.Now().Add(2*time.Hour)) {
		t.Fatalf("expected lock until now+2h, got %v", stored.Login.LockUntil)
	}

	// Correct password while locked: still rejected and the counter is untouched.
	if _, err := svc.Login(ctx, "ann@example.com", "Passw0rd!"); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if repo.accounts[acc.ID].Login.FailedAttempts != 5 {
		t.Fatalf("locked attempt must not change the counter")
	}
}

func TestAuthService_Login_ExpiredLockRestartsCounter(t *testing.T) {
	repo := newStubAccountRepo()
	clock := newClock()
	svc := newAuthSvc(repo, &stubMailer{}, clock)
	ctx := context.Background()

	acc := signupVerified(t, svc, repo, "ann@example.com")
	past := clock.Now().Add(-time.Minute)
	repo.accounts[acc.ID].Login = domain.LoginState{FailedAttempts: 5, LockUntil: &past}

	if _, err := svc.Login(ctx, "ann@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	stored := repo.accounts[acc.ID]
	if stored.Login.FailedAttempts != 1 || stored.Login.LockUntil != nil {
		t.Fatalf("expected counter 1 and no lock, got %+v", stored.Login)
	}
}

func TestAuthService_Login_SuccessResetsCounter(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAuthSvc(repo, &stubMailer{}, newClock())
	ctx := context.Background()

	acc := signupVerified(t, svc, repo, "ann@example.com")
	for i := 0; i < 3; i++ {
		_, _ = svc.Login(ctx, "ann@example.com", "wrong")
	}
	if _, err := svc.Login(ctx, "ann@example.com", "Passw0rd!"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got := repo.accounts[acc.ID].Login; got.FailedAttempts != 0 || got.LockUntil != nil {
		t.Fatalf("expected reset login state, got %+v", got)
	}
}

func TestAuthService_Login_RetriesContendedCounter(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAuthSvc(repo, &stubMailer{}, newClock())

	acc := signupVerified(t, svc, repo, "ann@example.com")
	repo.casConflicts = 1

	if _, err := svc.Login(context.Background(), "ann@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	// One failure from the simulated concurrent attempt plus ours.
	if got := repo.accounts[acc.ID].Login.FailedAttempts; got != 2 {
		t.Fatalf("expected 2 failed attempts, got %d", got)
	}
	if repo.casCalls != 2 {
		t.Fatalf("expected 2 compare-and-set calls, got %d", repo.casCalls)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newStubAccountRepo()
	clock := newClock()
	svc := newAuthSvc(repo, &stubMailer{}, clock)
	ctx := context.Background()

	signupVerified(t, svc, repo, "ann@example.com")
	first, err := svc.Login(ctx, "ann@example.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	access, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil || access == "" {
		t.Fatalf("refresh failed: %v", err)
	}

	// A second login in the same second supersedes the first session.
	second, err := svc.Login(ctx, "ann@example.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh tokens must differ between logins")
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected superseded token to fail, got %v", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("current token should refresh: %v", err)
	}

	if _, err := svc.Refresh(ctx, second.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("access token must not be accepted as refresh token, got %v", err)
	}
	if _, err := svc.Refresh(ctx, "garbage"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}

	clock.Advance(8 * 24 * time.Hour)
	if _, err := svc.Refresh(ctx, second.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAuthSvc(repo, &stubMailer{}, newClock())
	ctx := context.Background()

	acc := signupVerified(t, svc, repo, "ann@example.com")
	res, err := svc.Login(ctx, "ann@example.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.Logout(ctx, acc.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if repo.accounts[acc.ID].HasActiveSession() {
		t.Fatalf("expected session to be cleared")
	}
	if _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
}

func TestAuthService_VerificationStatus(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAuthSvc(repo, &stubMailer{}, newClock())
	ctx := context.Background()

	acc := signup(t, svc, "ann@example.com")
	verified, err := svc.VerificationStatus(ctx, "ann@example.com")
	if err != nil || verified {
		t.Fatalf("expected unverified, got %v, %v", verified, err)
	}
	_ = svc.VerifyEmail(ctx, acc.VerificationToken)
	if verified, _ := svc.VerificationStatus(ctx, "ann@example.com"); !verified {
		t.Fatalf("expected verified after token use")
	}
	if _, err := svc.VerificationStatus(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
