package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/formdesk/backend/internal/config"
	"github.com/formdesk/backend/internal/db"
	"github.com/formdesk/backend/internal/model"
	"github.com/formdesk/backend/internal/token"
)

const (
	refreshCookieName = "formdesk_refresh"
	maxLoginIDLength  = 64
	maxPasswordLength = 128
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrMisconfigured = errors.New("auth config invalid")
)

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

// authRepo is the slice of the record store the credential manager needs.
type authRepo interface {
	CreateUser(ctx context.Context, loginID, passwordHash string, role model.Role, firstName, lastName string) (*model.User, error)
	GetUserByLoginID(ctx context.Context, loginID string) (*model.User, error)
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
	DeleteUserByLoginID(ctx context.Context, loginID string) error
	InsertRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RevokeRefreshTokenByHash(ctx context.Context, tokenHash string) error
	RotateRefreshToken(ctx context.Context, oldTokenID int64, userID int64, newTokenHash string, newExpiresAt time.Time) error
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
}

// AuthService is the credential manager: it owns password hashing and
// the registration / password-change / delete invariants, and hands
// verified identities to the token authority for issuance.
type AuthService struct {
	repo        authRepo
	tokens      *token.Authority
	refreshTTL  time.Duration
	allowSignup bool
	cookieCfg   CookieConfig

	// bcrypt is CPU-bound; the semaphore keeps a burst of logins from
	// monopolizing every P.
	hashSem *semaphore.Weighted
}

// Session is what a successful register/login/refresh yields.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         *model.User
}

func NewAuthService(repo authRepo, tokens *token.Authority, cfg config.AuthConfig) (*AuthService, error) {
	refreshTTL, err := time.ParseDuration(cfg.JWTRefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_REFRESH_TTL", ErrMisconfigured)
	}

	allowSignup, err := parseBool(cfg.AllowSignup, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ALLOW_SIGNUP", ErrMisconfigured)
	}

	cookieSecure, err := parseBool(cfg.CookieSecure, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	return &AuthService{
		repo:        repo,
		tokens:      tokens,
		refreshTTL:  refreshTTL,
		allowSignup: allowSignup,
		cookieCfg: CookieConfig{
			Name:     refreshCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cookieSecure,
			SameSite: cookieSameSite,
			MaxAge:   int(refreshTTL.Seconds()),
		},
		hashSem: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}, nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist.
func (s *AuthService) EnsureAdmin(ctx context.Context, loginID, password string) error {
	if strings.TrimSpace(loginID) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_USERNAME/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	_, err := s.repo.GetUserByLoginID(ctx, loginID)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return err
	}

	hash, err := s.hashPassword(ctx, password)
	if err != nil {
		return err
	}

	_, err = s.repo.CreateUser(ctx, loginID, hash, model.RoleAdmin, "", "")
	return err
}

func (s *AuthService) AllowSignup() bool {
	return s.allowSignup
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

// Register creates a credential record and logs the new user in.
// Only an admin actor may create another admin; anonymous signups
// always get the least-privileged role.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest, actor *model.AuthUser) (*Session, error) {
	if !s.allowSignup && (actor == nil || actor.Role != model.RoleAdmin) {
		return nil, ErrForbidden
	}

	if err := validateCredentials(req.LoginID, req.Password); err != nil {
		return nil, err
	}

	role, ok := model.ParseRole(req.Role)
	if !ok {
		return nil, ErrInvalidInput
	}
	if role == model.RoleAdmin && (actor == nil || actor.Role != model.RoleAdmin) {
		return nil, ErrForbidden
	}

	hash, err := s.hashPassword(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, req.LoginID, hash, role, req.FirstName, req.LastName)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	return s.issueSession(ctx, user)
}

// Login verifies credentials and mints a session. Unknown identifier
// and wrong password are deliberately the same error so callers
// cannot enumerate accounts.
func (s *AuthService) Login(ctx context.Context, loginID, password string) (*Session, error) {
	if err := validateCredentials(loginID, password); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByLoginID(ctx, loginID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if err := s.comparePassword(ctx, user.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}

	return s.issueSession(ctx, user)
}

// ChangePassword re-proves the old password before rehashing. A wrong
// old password leaves the stored hash untouched.
func (s *AuthService) ChangePassword(ctx context.Context, loginID, oldPassword, newPassword string) error {
	if err := validateCredentials(loginID, newPassword); err != nil {
		return err
	}

	user, err := s.repo.GetUserByLoginID(ctx, loginID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrUnauthorized
		}
		return err
	}

	if err := s.comparePassword(ctx, user.PasswordHash, oldPassword); err != nil {
		return ErrUnauthorized
	}

	hash, err := s.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}

	return s.repo.UpdateUserPassword(ctx, user.ID, hash)
}

// Delete removes the credential record. Deleting an absent login is a
// success, so the operation is idempotent.
func (s *AuthService) Delete(ctx context.Context, loginID string) error {
	if strings.TrimSpace(loginID) == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteUserByLoginID(ctx, loginID)
}

// Me resolves the full record behind a verified subject.
func (s *AuthService) Me(ctx context.Context, loginID string) (*model.User, error) {
	user, err := s.repo.GetUserByLoginID(ctx, loginID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrUnauthorized
	}

	hash := hashRefreshToken(refreshToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if record.RevokedAt != nil || time.Now().After(record.ExpiresAt) {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}

	newRefreshToken, newHash, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.repo.RotateRefreshToken(ctx, record.ID, record.UserID, newHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.tokens.Issue(user.LoginID, user.Role)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    expiresIn,
		User:         user,
	}, nil
}

// Logout revokes the server-tracked refresh token. The access token
// stays valid until its expiry; there is no access-token deny list.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	hash := hashRefreshToken(refreshToken)
	return s.repo.RevokeRefreshTokenByHash(ctx, hash)
}

// VerifyAccess is the per-request verification gate.
func (s *AuthService) VerifyAccess(tokenString string) (*model.AuthUser, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return &model.AuthUser{
		LoginID: claims.Subject,
		Role:    claims.Role,
	}, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *model.User) (*Session, error) {
	accessToken, expiresIn, err := s.tokens.Issue(user.LoginID, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.repo.InsertRefreshToken(ctx, user.ID, refreshHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		User:         user,
	}, nil
}

func (s *AuthService) hashPassword(ctx context.Context, password string) (string, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.hashSem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt only hashes the first 72 bytes and rejects longer input
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrInvalidInput
		}
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) comparePassword(ctx context.Context, hash, password string) error {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.hashSem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func validateCredentials(loginID, password string) error {
	if loginID == "" || len(loginID) > maxLoginIDLength {
		return ErrInvalidInput
	}
	if password == "" || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteLaxMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}

func newRefreshToken() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	tok := base64.RawURLEncoding.EncodeToString(raw)
	return tok, hashRefreshToken(tok), nil
}

func hashRefreshToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
