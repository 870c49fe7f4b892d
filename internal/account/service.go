package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AnriTapel/logitrades/internal/auth"
	"github.com/AnriTapel/logitrades/internal/domain"
)

const (
	verificationTTL = 24 * time.Hour
	resetTTL        = time.Hour
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type TokenStore interface {
	CreateRefresh(ctx context.Context, t *domain.RefreshToken) error
	GetActiveRefresh(ctx context.Context, token string) (*domain.RefreshToken, error)
	RevokeRefresh(ctx context.Context, token string) error
	RevokeAllRefresh(ctx context.Context, userID uuid.UUID) error
	ReplaceOneTime(ctx context.Context, t *domain.OneTimeToken) error
	GetUnusedOneTime(ctx context.Context, kind domain.TokenKind, token string) (*domain.OneTimeToken, error)
	MarkOneTimeUsed(ctx context.Context, id uuid.UUID) error
}

type Mailer interface {
	SendVerification(to, username, token string)
	SendPasswordReset(to, username, token string)
}

// Session is the token pair handed to the client. RefreshToken is empty when
// the existing one stays valid.
type Session struct {
	User           *domain.User
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

type Service struct {
	users    UserStore
	tokens   TokenStore
	jwt      *auth.JWTService
	mailer   Mailer
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(users UserStore, tokens TokenStore, jwtSvc *auth.JWTService, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		jwt:      jwtSvc,
		mailer:   mailer,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	if err := s.ensureFree(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			if strings.Contains(err.Error(), "email") {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Error("verification email not queued", "user_id", user.ID, "err", err)
	}
	s.logger.Info("user signed up", "user_id", user.ID)
	return sess, nil
}

func (s *Service) ensureFree(ctx context.Context, username, email string) error {
	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return ErrUsernameTaken
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	_, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return nil
}

// Login checks credentials, revokes older refresh tokens and opens a new session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUsernameNotFound
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrWrongPassword
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	if err := s.tokens.RevokeAllRefresh(ctx, user.ID); err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

// Me resolves the caller from the access token or, failing that, from a
// stored refresh token, which is then rotated. A fresh access token is always
// issued.
func (s *Service) Me(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	var (
		userID uuid.UUID
		rotate bool
	)
	if accessToken != "" {
		if claims, err := s.jwt.Parse(accessToken, auth.TokenAccess); err == nil {
			userID, _ = claims.UserID()
		}
	}
	if userID == uuid.Nil && refreshToken != "" {
		if id, err := s.checkRefresh(ctx, refreshToken); err == nil {
			userID = id
			rotate = true
		}
	}
	if userID == uuid.Nil {
		return nil, ErrInvalidSession
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess := &Session{User: user}
	if rotate {
		if err := s.tokens.RevokeRefresh(ctx, refreshToken); err != nil {
			return nil, err
		}
		if err := s.addRefresh(ctx, sess); err != nil {
			return nil, err
		}
	}
	if err := s.addAccess(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrRefreshRequired
	}
	userID, err := s.checkRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess := &Session{User: user}
	if err := s.addAccess(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.RevokeRefresh(ctx, refreshToken)
}

func (s *Service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) error {
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}
	tok, err := s.consume(ctx, domain.TokenEmailVerification, req.Token, ErrInvalidVerifyLink, ErrVerifyLinkExpired)
	if err != nil {
		return err
	}
	if err := s.users.MarkVerified(ctx, tok.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("email verified", "user_id", tok.UserID)
	return nil
}

func (s *Service) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	return s.sendVerification(ctx, user)
}

// ForgotPassword sends a reset link when the email is known and reports
// success either way.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	token, err := s.newOneTime(ctx, user.ID, domain.TokenPasswordReset, resetTTL)
	if err != nil {
		return err
	}
	s.mailer.SendPasswordReset(user.Email, user.Username, token)
	return nil
}

// ResetPassword sets a new password and signs the user out everywhere.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validateRequest(s.validate, req); err != nil {
		return err
	}
	tok, err := s.consume(ctx, domain.TokenPasswordReset, req.Token, ErrInvalidResetLink, ErrResetLinkExpired)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, tok.UserID, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.tokens.RevokeAllRefresh(ctx, tok.UserID); err != nil {
		return err
	}
	s.logger.Info("password reset", "user_id", tok.UserID)
	return nil
}

func (s *Service) consume(ctx context.Context, kind domain.TokenKind, token string, invalid, expired *Error) (*domain.OneTimeToken, error) {
	tok, err := s.tokens.GetUnusedOneTime(ctx, kind, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if tok.ExpiresAt.Before(s.now()) {
		return nil, expired
	}
	if err := s.tokens.MarkOneTimeUsed(ctx, tok.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	return tok, nil
}

func (s *Service) sendVerification(ctx context.Context, user *domain.User) error {
	token, err := s.newOneTime(ctx, user.ID, domain.TokenEmailVerification, verificationTTL)
	if err != nil {
		return err
	}
	s.mailer.SendVerification(user.Email, user.Username, token)
	return nil
}

func (s *Service) newOneTime(ctx context.Context, userID uuid.UUID, kind domain.TokenKind, ttl time.Duration) (string, error) {
	tok := &domain.OneTimeToken{
		UserID:    userID,
		Kind:      kind,
		Token:     strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.tokens.ReplaceOneTime(ctx, tok); err != nil {
		return "", fmt.Errorf("store %s token: %w", kind, err)
	}
	return tok.Token, nil
}

func (s *Service) checkRefresh(ctx context.Context, refreshToken string) (uuid.UUID, error) {
	claims, err := s.jwt.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return uuid.Nil, ErrInvalidRefresh
	}
	if _, err := s.tokens.GetActiveRefresh(ctx, refreshToken); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, ErrInvalidRefresh
		}
		return uuid.Nil, err
	}
	id, _ := claims.UserID()
	return id, nil
}

func (s *Service) activeUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInactiveUser
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func (s *Service) issueSession(ctx context.Context, user *domain.User) (*Session, error) {
	sess := &Session{User: user}
	if err := s.addAccess(sess); err != nil {
		return nil, err
	}
	if err := s.addRefresh(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) addAccess(sess *Session) error {
	token, expires, err := s.jwt.Sign(sess.User.ID, auth.TokenAccess)
	if err != nil {
		return err
	}
	sess.AccessToken, sess.AccessExpires = token, expires
	return nil
}

func (s *Service) addRefresh(ctx context.Context, sess *Session) error {
	token, expires, err := s.jwt.Sign(sess.User.ID, auth.TokenRefresh)
	if err != nil {
		return err
	}
	if err := s.tokens.CreateRefresh(ctx, &domain.RefreshToken{
		UserID:    sess.User.ID,
		Token:     token,
		ExpiresAt: expires,
	}); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	sess.RefreshToken, sess.RefreshExpires = token, expires
	return nil
}
