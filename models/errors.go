package models

import "errors"

// Expected outcomes of moderation, quota and configuration operations.
// Callers match them with errors.Is and render them to the user.
var (
	ErrAlreadyBlocked     = errors.New("user is already blocked")
	ErrNotBlocked         = errors.New("user is not blocked")
	ErrAlreadyBlacklisted = errors.New("user is already blacklisted")
	ErrDuplicateVote      = errors.New("vote already recorded")
	ErrNotBlacklisted     = errors.New("user is not blacklisted")
	ErrQuotaExceeded      = errors.New("daily quota exceeded")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrPermissionDenied   = errors.New("administrator permission required")
	ErrUnmanagedUser      = errors.New("user is not subject to a quota")

	// ErrTransientStore wraps persistence failures.
	ErrTransientStore = errors.New("transient store error")
)
