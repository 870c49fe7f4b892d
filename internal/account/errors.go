package account

type Kind int

const (
	KindInvalid Kind = iota
	KindUnauthorized
	KindNotFound
)

// Error is a failure whose message is safe to show to the user.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrUsernameTaken     = &Error{KindInvalid, "This username is already taken"}
	ErrEmailTaken        = &Error{KindInvalid, "User with this email already exists"}
	ErrUsernameNotFound  = &Error{KindInvalid, "This username is not found"}
	ErrWrongPassword     = &Error{KindInvalid, "Wrong password"}
	ErrInvalidSession    = &Error{KindUnauthorized, "Invalid or expired tokens"}
	ErrInactiveUser      = &Error{KindUnauthorized, "User not found or inactive"}
	ErrRefreshRequired   = &Error{KindUnauthorized, "Refresh token required"}
	ErrInvalidRefresh    = &Error{KindUnauthorized, "Invalid refresh token"}
	ErrInvalidVerifyLink = &Error{KindInvalid, "Invalid verification token"}
	ErrVerifyLinkExpired = &Error{KindInvalid, "Verification token expired"}
	ErrAlreadyVerified   = &Error{KindInvalid, "Email already verified"}
	ErrInvalidResetLink  = &Error{KindInvalid, "Invalid or expired reset token"}
	ErrResetLinkExpired  = &Error{KindInvalid, "Reset token has expired"}
	ErrUserNotFound      = &Error{KindNotFound, "User not found"}
)
