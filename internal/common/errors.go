// Package common defines shared constants and sentinel errors used across
// client and server layers of realmkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors.
	ErrValidation = errors.New("validation error")

	// Credential store errors.
	ErrDuplicateIdentity = errors.New("email already in use")
	ErrIdentityNotFound  = errors.New("user not found")

	// ErrAuthenticationFailure is returned for both an unknown email and a
	// wrong password so callers cannot enumerate accounts.
	ErrAuthenticationFailure = errors.New("invalid email or password")

	// Token errors.
	ErrNoToken        = errors.New("no token provided")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")

	// Profile asset lifecycle errors.
	ErrNoAssetProvided    = errors.New("no image provided")
	ErrAssetUploadFailed  = errors.New("asset upload failed")
	ErrAssetPersistFailed = errors.New("asset persist failed")
	ErrAssetCleanupFailed = errors.New("asset cleanup failed")
)
