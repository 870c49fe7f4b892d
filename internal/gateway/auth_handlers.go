package gateway

import (
	"net/http"
	"time"

	"github.com/AnriTapel/logitrades/internal/account"
	"github.com/AnriTapel/logitrades/internal/auth"
)

type authResponse struct {
	Success   bool   `json:"success"`
	Username  string `json:"username"`
	EmailSent bool   `json:"email_sent,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req account.SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSession(w, sess)
	writeJSON(w, r, http.StatusOK, authResponse{Success: true, Username: sess.User.Username, EmailSent: true})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req account.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSession(w, sess)
	writeJSON(w, r, http.StatusOK, authResponse{Success: true, Username: sess.User.Username})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := h.accounts.Me(r.Context(), auth.AccessTokenFromRequest(r), refreshToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSession(w, sess)
	writeJSON(w, r, http.StatusOK, sess.User)
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, err := h.accounts.Refresh(r.Context(), refreshToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSession(w, sess)
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "user_id": sess.User.ID})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), refreshToken(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.clearSession(w)
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req account.VerifyEmailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.accounts.VerifyEmail(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Success: true, Message: "Email verified successfully"})
}

func (h *Handlers) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.ResendVerification(r.Context(), auth.UserIDFromCtx(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Success: true, Message: "Verification email sent"})
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req account.ForgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.accounts.ForgotPassword(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{
		Success: true,
		Message: "If an account with that email exists, a password reset link has been sent",
	})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req account.ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.clearSession(w)
	writeJSON(w, r, http.StatusOK, messageResponse{Success: true, Message: "Password has been reset successfully"})
}

func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(auth.RefreshCookie); err == nil {
		return c.Value
	}
	return ""
}

// setSession writes the access cookie and, when the session carries one, the
// refresh cookie.
func (h *Handlers) setSession(w http.ResponseWriter, sess *account.Session) {
	http.SetCookie(w, h.cookie(auth.AccessCookie, sess.AccessToken, sess.AccessExpires))
	if sess.RefreshToken != "" {
		http.SetCookie(w, h.cookie(auth.RefreshCookie, sess.RefreshToken, sess.RefreshExpires))
	}
}

func (h *Handlers) clearSession(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h *Handlers) cookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		c.MaxAge = int(time.Until(expires).Seconds())
	}
	return c
}
