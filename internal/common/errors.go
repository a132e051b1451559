package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrUserNotFound = errors.New("user not found")

	// Client / report errors. Ownership mismatches surface as not-found.
	ErrClientNotFound     = errors.New("client not found")
	ErrReportNotFound     = errors.New("report not found")
	ErrClientLimitReached = errors.New("client limit reached")
	ErrGoogleNotConnected = errors.New("google account not connected")

	// Billing errors
	ErrTrialAlreadyUsed = errors.New("trial already used")
	ErrInvalidPlan      = errors.New("invalid plan")
	ErrNotSubscribed    = errors.New("no active subscription")
	ErrAlreadyCancelled = errors.New("subscription already cancelled")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)
