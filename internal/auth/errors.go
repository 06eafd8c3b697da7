package auth

import "errors"

// session verification failures
var (
	ErrNoSession      = errors.New("no session cookies")
	ErrInvalidSession = errors.New("invalid or stale session")
)

// signup validation failures, in the order they are checked
var (
	ErrUsernameTooShort     = errors.New("username must have at least 6 characters")
	ErrUsernameInvalidChars = errors.New("username can only have alphanumeric characters")
	ErrPasswordMismatch     = errors.New("the passwords do not match")
	ErrPasswordTooShort     = errors.New("password must have at least 8 characters")
	ErrUsernameTaken        = errors.New("username is taken")
)

var (
	ErrWrongCredentials = errors.New("wrong username or password")
	// ErrPrivilegedVerification deliberately covers both "wrong password" and
	// "credential record missing", to avoid username enumeration.
	ErrPrivilegedVerification = errors.New("failed to verify details for privileged action")
)
