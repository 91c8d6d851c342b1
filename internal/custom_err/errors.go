package custom_err

import "errors"

var (
	// Ledger errors
	ErrNotFound          = errors.New("resource not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrConflict          = errors.New("balance changed by concurrent operation")
	ErrTimeout           = errors.New("operation timed out")
	ErrSelfTransfer      = errors.New("cannot transfer to yourself")
	ErrDepositCeiling    = errors.New("deposit amount exceeds ceiling")

	// Alert errors
	ErrInvalidState = errors.New("alert is not pending review")

	// User errors
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenNotActive     = errors.New("token not active yet")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidKind     = errors.New("invalid entry kind")
)
