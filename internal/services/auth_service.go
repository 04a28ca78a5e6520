package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sprout/internal/amqp"
	"sprout/internal/auth"
	"sprout/internal/core"
	"sprout/internal/log"
	"sprout/internal/storage"
)

const (
	defaultSessionLifetime = 7 * 24 * time.Hour
	resetTokenLifetime     = time.Hour
)

// AuthService implements signup, login and the password-reset flow on top of
// database-backed sessions. Reset emails leave through the message queue so a
// slow or absent mail path never delays the response.
type AuthService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
	mailQueue  string
	baseURL    string
	sessionTTL time.Duration
	logger     *log.Logger
	now        func() time.Time
}

func NewAuthService(repo *storage.Repository, amqpClient *amqp.Client, mailQueue, baseURL string, sessionTTL time.Duration, logger *log.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionLifetime
	}
	return &AuthService{
		storage:    repo,
		amqpClient: amqpClient,
		mailQueue:  mailQueue,
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionTTL: sessionTTL,
		logger:     logger.WithComponent(log.ComponentAuth),
		now:        time.Now,
	}
}

func validateCredentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", core.NewValidationError("Email is required", "email")
	}
	if password == "" {
		return "", core.NewValidationError("Password is required", "password")
	}
	if !auth.ValidEmail(email) {
		return "", core.NewValidationError("Please enter a valid email address", "email")
	}
	if len(password) < 6 {
		return "", core.NewValidationError("Password must be at least 6 characters", "password")
	}
	return email, nil
}

// Signup registers a new account and logs it in, returning the user and the
// fresh session token.
func (s *AuthService) Signup(ctx context.Context, email, password string) (core.User, string, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return core.User{}, "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, "", fmt.Errorf("signup: %w", err)
	}
	user, err := s.storage.CreateUser(ctx, email, hash)
	if err != nil {
		return core.User{}, "", err
	}

	// The preference row is created eagerly so the first reads already hit a
	// stored row; a failure here is harmless because reads lazily recreate it.
	if err := s.storage.SetDailyLimit(ctx, user.ID, core.DefaultDailyLimit); err != nil {
		s.logger.WarnContext(ctx, "failed to seed preference row",
			log.FieldUserID, user.ID,
			log.FieldError, err)
	}

	token, err := s.startSession(ctx, user.ID)
	if err != nil {
		return core.User{}, "", err
	}
	s.logger.InfoContext(ctx, "user signed up", log.FieldUserID, user.ID)
	return user, token, nil
}

// Login verifies the credentials and opens a session. Unknown accounts and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return core.User{}, "", err
	}

	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return core.User{}, "", &core.AuthenticationError{Message: "Invalid email or password"}
		}
		return core.User{}, "", fmt.Errorf("login: %w", err)
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return core.User{}, "", &core.AuthenticationError{Message: "Invalid email or password"}
	}

	token, err := s.startSession(ctx, user.ID)
	if err != nil {
		return core.User{}, "", err
	}
	s.logger.InfoContext(ctx, "user logged in", log.FieldUserID, user.ID)
	return user, token, nil
}

// Logout deletes the session; unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.storage.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// ValidateSession resolves a session token to its live session. Expired and
// unknown tokens both read as "authentication required". Rolling renewal is
// the auth middleware's job; this is a pure lookup.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (core.Session, error) {
	if token == "" {
		return core.Session{}, core.ErrAuthRequired
	}
	session, err := s.storage.SessionByToken(ctx, token)
	if err != nil {
		if core.IsNotFound(err) {
			return core.Session{}, core.ErrAuthRequired
		}
		return core.Session{}, fmt.Errorf("validate session: %w", err)
	}
	return session, nil
}

// RenewSession pushes a session's expiry out; unknown tokens report not found.
func (s *AuthService) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	if err := s.storage.RenewSession(ctx, token, expiresAt); err != nil {
		if core.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("renew session: %w", err)
	}
	return nil
}


// CurrentUser loads the authenticated user's profile.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (core.User, error) {
	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.User{}, err
		}
		return core.User{}, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

// ForgotPassword starts a reset for the named account. Whether the account
// exists is never revealed: the caller sees the same outcome either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return core.NewValidationError("Email address is required", "email")
	}
	if !auth.ValidEmail(email) {
		return core.NewValidationError("Please enter a valid email address", "email")
	}

	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("forgot password: %w", err)
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	if err := s.storage.CreatePasswordReset(ctx, token, user.ID, s.now().Add(resetTokenLifetime)); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password.html?token=%s", s.baseURL, token)
	if err := s.publishResetMail(ctx, user.Email, resetURL); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reset mail",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		// The token is stored; support can still hand out the link.
	}
	s.logger.InfoContext(ctx, "password reset started", log.FieldUserID, user.ID)
	return nil
}

// ResetPassword redeems a reset token. Tokens are single-use and expire an
// hour after issue; missing, expired and used tokens are indistinguishable.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" || password == "" {
		return core.NewValidationError("Token and new password are required", "")
	}
	if len(password) < 6 {
		return core.NewValidationError("Password must be at least 6 characters", "password")
	}

	reset, err := s.storage.PasswordResetByToken(ctx, token)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError("Invalid or expired reset token", "token")
		}
		return fmt.Errorf("reset password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.storage.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.storage.MarkPasswordResetUsed(ctx, token); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset completed", log.FieldUserID, reset.UserID)
	return nil
}

func (s *AuthService) startSession(ctx context.Context, userID int64) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	if err := s.storage.CreateSession(ctx, token, userID, s.now().Add(s.sessionTTL)); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return token, nil
}

func (s *AuthService) publishResetMail(ctx context.Context, email, resetURL string) error {
	if s.amqpClient == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping reset mail")
		return nil
	}
	return s.amqpClient.PublishMail(ctx, s.mailQueue, amqp.NewPasswordResetMail(email, resetURL))
}
