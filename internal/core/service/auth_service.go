package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
	"github.com/blogify/blog-api/internal/pkg/metrics"
)

const (
	DefaultBcryptCost = 12

	// loginStatePasses bounds the reload-and-retry loop of a contended
	// failure counter update.
	loginStatePasses = 3
)

// AuthServiceConfig tunes hashing and lockout.
type AuthServiceConfig struct {
	BcryptCost int
	Lockout    domain.LockoutPolicy
}

// AuthService implements signup, login and the session lifecycle.
type AuthService struct {
	repo    ports.AccountRepository
	tokens  *TokenIssuer
	mailer  ports.VerificationMailer
	table   domain.PermissionTable
	cost    int
	lockout domain.LockoutPolicy
	log     zerolog.Logger
	now     func() time.Time

	// dummy is compared against for unknown emails.
	dummy []byte
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(
	repo ports.AccountRepository,
	tokens *TokenIssuer,
	mailer ports.VerificationMailer,
	table domain.PermissionTable,
	cfg AuthServiceConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.Lockout.MaxAttempts <= 0 || cfg.Lockout.LockDuration <= 0 {
		cfg.Lockout = domain.DefaultLockoutPolicy()
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cfg.BcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("dummy hash generation failed")
	}
	return &AuthService{
		repo:    repo,
		tokens:  tokens,
		mailer:  mailer,
		table:   table,
		cost:    cfg.BcryptCost,
		lockout: cfg.Lockout,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		dummy:   dummy,
	}
}

// Signup registers an unverified account with role user and queues the
// verification message.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Account, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, domain.Validationf("name, email and password are required")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("signup: %w", err)
	}

	hash, err := hashPassword(in.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	token, err := newVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.Account{
		Name:              name,
		Email:             email,
		PasswordHash:      string(hash),
		Role:              domain.RoleUser,
		Permissions:       s.table.For(domain.RoleUser),
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, err
	}
	metrics.SignupsTotal.Inc()

	msg := ports.VerificationMessage{To: created.Email, Name: created.Name, Token: token}
	if err := s.mailer.SendVerification(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("account_id", created.ID).Msg("verification message not queued")
		return nil, fmt.Errorf("signup: queue verification: %w", err)
	}

	s.log.Info().Str("account_id", created.ID).Str("email", created.Email).Msg("account registered")
	return created, nil
}

// Login checks credentials and opens a session. Check order: unknown email,
// active lock, password, verification.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = NormalizeEmail(email)

	account, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		// Keep the response time of unknown emails close to a real check.
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		metrics.LoginsTotal.WithLabelValues(metrics.LoginInvalid).Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	now := s.now()
	if account.Login.LockedAt(now) {
		metrics.LoginsTotal.WithLabelValues(metrics.LoginLocked).Inc()
		return nil, domain.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		if err := s.recordFailure(ctx, account, now); err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		metrics.LoginsTotal.WithLabelValues(metrics.LoginInvalid).Inc()
		s.log.Debug().Str("account_id", account.ID).Msg("login rejected: bad password")
		return nil, domain.ErrInvalidCredentials
	}

	if !account.Verified {
		metrics.LoginsTotal.WithLabelValues(metrics.LoginUnverified).Inc()
		return nil, domain.ErrEmailNotVerified
	}

	access, err := s.tokens.IssueAccess(account)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(account)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	digest := HashToken(refresh)
	if err := s.repo.RecordLogin(ctx, account.ID, now, digest); err != nil {
		return nil, fmt.Errorf("login: record session: %w", err)
	}

	account.Login = domain.LoginState{}
	account.LastLoginAt = &now
	account.RefreshTokenHash = digest
	metrics.LoginsTotal.WithLabelValues(metrics.LoginSuccess).Inc()

	return &ports.LoginResult{AccessToken: access, RefreshToken: refresh, Account: account}, nil
}

// recordFailure applies the lockout transition with compare-and-set, reloading
// the account when a concurrent attempt won the race.
func (s *AuthService) recordFailure(ctx context.Context, account *domain.Account, now time.Time) error {
	current := account
	for pass := 0; pass < loginStatePasses; pass++ {
		next := s.lockout.AfterFailure(current.Login, now)
		applied, err := s.repo.CompareAndSetLoginState(ctx, current.ID, current.Login, next)
		if err != nil {
			return fmt.Errorf("update login state: %w", err)
		}
		if applied {
			if next.LockedAt(now) && !current.Login.LockedAt(now) {
				metrics.AccountLockoutsTotal.Inc()
				s.log.Warn().
					Str("account_id", current.ID).
					Int("attempts", next.FailedAttempts).
					Time("lock_until", *next.LockUntil).
					Msg("account locked")
			}
			current.Login = next
			return nil
		}

		metrics.LoginsTotal.WithLabelValues(metrics.LoginStateRetried).Inc()
		current, err = s.repo.FindByID(ctx, account.ID)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reload login state: %w", err)
		}
		if current.Login.LockedAt(now) {
			return nil
		}
	}

	s.log.Warn().Str("account_id", account.ID).Msg("login state update abandoned after contention")
	return nil
}

// Refresh exchanges the stored refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", domain.ErrInvalidToken
	}

	account, err := s.repo.FindByID(ctx, claims.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return "", domain.ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}

	presented := HashToken(refreshToken)
	if !account.HasActiveSession() ||
		subtle.ConstantTimeCompare([]byte(account.RefreshTokenHash), []byte(presented)) != 1 {
		return "", domain.ErrInvalidToken
	}

	access, err := s.tokens.IssueAccess(account)
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	return access, nil
}

// VerifyEmail consumes a verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrVerificationTokenInvalid
	}

	account, err := s.repo.FindByVerificationToken(ctx, token)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrVerificationTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	if account.Verified {
		return domain.ErrAlreadyVerified
	}

	if err := s.repo.MarkVerified(ctx, account.ID); err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	s.log.Info().Str("account_id", account.ID).Msg("email verified")
	return nil
}

// VerificationStatus reports whether the account registered under email is verified.
func (s *AuthService) VerificationStatus(ctx context.Context, email string) (bool, error) {
	account, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return account.Verified, nil
}

func (s *AuthService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

// Logout discards the stored refresh token. Issued access tokens remain valid
// until they expire.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	if err := s.repo.SetRefreshTokenHash(ctx, accountID, ""); err != nil {
		return err
	}
	s.log.Debug().Str("account_id", accountID).Msg("session closed")
	return nil
}

// hashPassword bcrypts password. Input past bcrypt's 72 byte limit is a
// validation failure rather than an internal one.
func hashPassword(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, domain.Validationf("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newVerificationToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
