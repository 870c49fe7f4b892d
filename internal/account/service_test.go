package account

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriTapel/logitrades/internal/auth"
	"github.com/AnriTapel/logitrades/internal/testutil/memstore"
)

type harness struct {
	svc    *Service
	users  *memstore.Users
	tokens *memstore.Tokens
	mailer *memstore.Mailer
	jwt    *auth.JWTService
}

func newHarness() *harness {
	h := &harness{
		users:  memstore.NewUsers(),
		tokens: memstore.NewTokens(),
		mailer: &memstore.Mailer{},
		jwt:    auth.NewJWTService("test-secret", time.Hour, 30*24*time.Hour),
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h.svc = NewService(h.users, h.tokens, h.jwt, h.mailer, logger)
	return h
}

func (h *harness) signup(t *testing.T, username, email string) *Session {
	t.Helper()
	sess, err := h.svc.Signup(context.Background(), SignupRequest{
		Username: username,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return sess
}

func TestSignup(t *testing.T) {
	h := newHarness()
	sess := h.signup(t, "ann", "ann@example.com")

	assert.Equal(t, "ann", sess.User.Username)
	assert.True(t, sess.User.IsActive)
	assert.False(t, sess.User.IsVerified)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.Equal(t, 1, h.tokens.ActiveRefreshCount(sess.User.ID))

	mail, ok := h.mailer.LastVerification()
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", mail.To)
	assert.NotEmpty(t, mail.Token)
}

func TestSignupConflicts(t *testing.T) {
	h := newHarness()
	h.signup(t, "ann", "ann@example.com")
	ctx := context.Background()

	_, err := h.svc.Signup(ctx, SignupRequest{Username: "ann", Email: "x@example.com", Password: "password123"})
	assert.Equal(t, ErrUsernameTaken, err)

	_, err = h.svc.Signup(ctx, SignupRequest{Username: "bob", Email: "ann@example.com", Password: "password123"})
	assert.Equal(t, ErrEmailTaken, err)
}

func TestSignupValidation(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Signup(context.Background(), SignupRequest{Username: "a", Email: "nope", Password: "short"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Must be at least 3 characters.", ve.Fields["username"])
	assert.Equal(t, "Must be a valid email address.", ve.Fields["email"])
	assert.Equal(t, "Must be at least 8 characters.", ve.Fields["password"])
}

func TestLogin(t *testing.T) {
	h := newHarness()
	first := h.signup(t, "ann", "ann@example.com")
	ctx := context.Background()

	_, err := h.svc.Login(ctx, LoginRequest{Username: "nobody", Password: "password123"})
	assert.Equal(t, ErrUsernameNotFound, err)

	_, err = h.svc.Login(ctx, LoginRequest{Username: "ann", Password: "wrong-password"})
	assert.Equal(t, ErrWrongPassword, err)

	sess, err := h.svc.Login(ctx, LoginRequest{Username: "ann", Password: "password123"})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, sess.RefreshToken)
	assert.Equal(t, 1, h.tokens.ActiveRefreshCount(sess.User.ID))
}

func TestMe(t *testing.T) {
	h := newHarness()
	sess := h.signup(t, "ann", "ann@example.com")
	ctx := context.Background()

	t.Run("valid access token keeps refresh token", func(t *testing.T) {
		me, err := h.svc.Me(ctx, sess.AccessToken, sess.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, sess.User.ID, me.User.ID)
		assert.NotEmpty(t, me.AccessToken)
		assert.Empty(t, me.RefreshToken)
	})

	t.Run("refresh token is rotated", func(t *testing.T) {
		me, err := h.svc.Me(ctx, "", sess.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, me.RefreshToken)
		assert.NotEqual(t, sess.RefreshToken, me.RefreshToken)

		_, err = h.svc.Me(ctx, "", sess.RefreshToken)
		assert.Equal(t, ErrInvalidSession, err)
	})

	t.Run("no tokens", func(t *testing.T) {
		_, err := h.svc.Me(ctx, "garbage", "")
		assert.Equal(t, ErrInvalidSession, err)
	})

	t.Run("inactive user", func(t *testing.T) {
		require.NoError(t, h.users.SetActive(sess.User.ID, false))
		defer h.users.SetActive(sess.User.ID, true)

		_, err := h.svc.Me(ctx, sess.AccessToken, "")
		assert.Equal(t, ErrInactiveUser, err)
	})
}

func TestRefreshAndLogout(t *testing.T) {
	h := newHarness()
	sess := h.signup(t, "ann", "ann@example.com")
	ctx := context.Background()

	_, err := h.svc.Refresh(ctx, "")
	assert.Equal(t, ErrRefreshRequired, err)

	_, err = h.svc.Refresh(ctx, sess.AccessToken)
	assert.Equal(t, ErrInvalidRefresh, err)

	refreshed, err := h.svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken)

	require.NoError(t, h.svc.Logout(ctx, sess.RefreshToken))
	_, err = h.svc.Refresh(ctx, sess.RefreshToken)
	assert.Equal(t, ErrInvalidRefresh, err)
}

func TestVerifyEmail(t *testing.T) {
	h := newHarness()
	sess := h.signup(t, "ann", "ann@example.com")
	ctx := context.Background()
	mail, _ := h.mailer.LastVerification()

	assert.Equal(t, ErrInvalidVerifyLink, h.svc.VerifyEmail(ctx, VerifyEmailRequest{Token: "unknown"}))

	require.NoError(t, h.svc.VerifyEmail(ctx, VerifyEmailRequest{Token: mail.Token}))
	user, err := h.users.GetByID(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	assert.Equal(t, ErrInvalidVerifyLink, h.svc.VerifyEmail(ctx, VerifyEmailRequest{Token: mail.Token}))
	assert.Equal(t, ErrAlreadyVerified, h.svc.ResendVerification(ctx, sess.User.ID))
}

func TestVerifyEmailExpired(t *testing.T) {
	h := newHarness()
	h.signup(t, "ann", "ann@example.com")
	mail, _ := h.mailer.LastVerification()
	h.tokens.ExpireOneTime(mail.Token)

	err := h.svc.VerifyEmail(context.Background(), VerifyEmailRequest{Token: mail.Token})
	assert.Equal(t, ErrVerifyLinkExpired, err)
}

func TestResendVerificationInvalidatesOldLink(t *testing.T) {
	h := newHarness()
	sess := h.signup(t, "ann", "ann@example.com")
	ctx := context.Background()
	old, _ := h.mailer.LastVerification()

	require.NoError(t, h.svc.ResendVerification(ctx, sess.User.ID))
	fresh, _ := h.mailer.LastVerification()
	assert.NotEqual(t, old.Token, fresh.Token)

	assert.Equal(t, ErrInvalidVerifyLink, h.svc.VerifyEmail(ctx, VerifyEmailRequest{Token: old.Token}))
	assert.NoError(t, h.svc.VerifyEmail(ctx, VerifyEmailRequest{Token: fresh.Token}))
}

func TestPasswordReset(t *testing.T) {
	h := newHarness()
	sess := h.signup(t, "ann", "ann@example.com")
	ctx := context.Background()

	require.NoError(t, h.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "ghost@example.com"}))
	_, sent := h.mailer.LastReset()
	assert.False(t, sent)

	require.NoError(t, h.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "ANN@example.com"}))
	mail, sent := h.mailer.LastReset()
	require.True(t, sent)

	err := h.svc.ResetPassword(ctx, ResetPasswordRequest{Token: "bogus", Password: "new-password"})
	assert.Equal(t, ErrInvalidResetLink, err)

	require.NoError(t, h.svc.ResetPassword(ctx, ResetPasswordRequest{Token: mail.Token, Password: "new-password"}))
	assert.Zero(t, h.tokens.ActiveRefreshCount(sess.User.ID))

	_, err = h.svc.Login(ctx, LoginRequest{Username: "ann", Password: "password123"})
	assert.Equal(t, ErrWrongPassword, err)
	_, err = h.svc.Login(ctx, LoginRequest{Username: "ann", Password: "new-password"})
	assert.NoError(t, err)
}

func TestPasswordResetExpired(t *testing.T) {
	h := newHarness()
	h.signup(t, "ann", "ann@example.com")
	ctx := context.Background()
	require.NoError(t, h.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "ann@example.com"}))
	mail, _ := h.mailer.LastReset()
	h.tokens.ExpireOneTime(mail.Token)

	err := h.svc.ResetPassword(ctx, ResetPasswordRequest{Token: mail.Token, Password: "new-password"})
	assert.Equal(t, ErrResetLinkExpired, err)
}
