package errors

// Error codes for standardized error responses
const (
	// Authentication
	ErrCodeUnauthorized = "unauthorized"

	// Validation
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeInvalidStake      = "invalid_stake"
	ErrCodeInsufficientCoins = "not_enough_coins"
	ErrCodeInvalidTask       = "invalid_task"

	// Resources
	ErrCodeUserNotFound   = "user_not_found"
	ErrCodeMatchNotFound  = "match_not_found"
	ErrCodeNotInMatch     = "not_in_match"
	ErrCodeTargetNotFound = "target_not_found"

	// Match state
	ErrCodeMatchFull      = "match_full"
	ErrCodeMatchNotActive = "match_not_active"
	ErrCodeMatchEnded     = "match_ended"

	// Server
	ErrCodeInternalError = "internal_error"
)
