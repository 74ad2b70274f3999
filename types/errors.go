package types

import "errors"

// Error taxonomy shared by the certificate ledger and the offer pool. Every
// failed operation aborts its enclosing transaction; callers match these with
// errors.Is.
var (
	// idempotency guards
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotEmpty           = errors.New("target already exists")

	// lookup
	ErrNotFound = errors.New("not found")

	// identity and authentication
	ErrNotOwned      = errors.New("caller does not own the certificate")
	ErrNotAuthorized = errors.New("caller is not authorized")

	// lifecycle preconditions
	ErrNotPermitted = errors.New("operation not permitted in current state")

	// split request validation
	ErrInvalidArgs       = errors.New("invalid arguments")
	ErrSplitAmountTooLow = errors.New("split amount below minimum")
	ErrAmountTooMuch     = errors.New("split amount exceeds certificate amount")
	ErrSplitLimitReached = errors.New("split depth limit reached")

	// offer pool preconditions
	ErrTokenNotSupported = errors.New("token is not whitelisted")
	ErrTCDisabled        = errors.New("certificate is disabled")
	ErrTCAlreadyLoaned   = errors.New("certificate is already loaned")
	ErrTCNotLoaned       = errors.New("certificate is not loaned")
	ErrOfferChanged      = errors.New("offer is not in the required status")

	// arithmetic
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrIntegerOverflow = errors.New("integer overflow")

	// collaborators
	ErrInvalidContract     = errors.New("contract is not registered")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
