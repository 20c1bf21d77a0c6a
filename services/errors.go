package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrUnauthorized        = errors.New("caller is not an administrator")
	ErrNotFound            = errors.New("not found")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrBountyInactive      = errors.New("bounty not available for application")
	ErrOutOfStock          = errors.New("not in stock")
	ErrAlreadyPending      = errors.New("user has pending approval")
	ErrAlreadyAwarded      = errors.New("user already holds bounty")
	ErrTempBanned          = errors.New("temp banned less than 24 hours ago")
	ErrAlreadyFulfilled    = errors.New("oracle request already fulfilled")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyEnrolled     = errors.New("user already enrolled")
	ErrAlreadyPinned       = errors.New("announcement already pinned")
	ErrItemUnavailable     = errors.New("item not available for purchase")
)

// ErrorCode returns a stable machine-readable code for err, or "internal".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrBountyInactive):
		return "bounty_inactive"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrAlreadyPending):
		return "already_pending"
	case errors.Is(err, ErrAlreadyAwarded):
		return "already_awarded"
	case errors.Is(err, ErrTempBanned):
		return "temp_banned"
	case errors.Is(err, ErrAlreadyFulfilled):
		return "already_fulfilled"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, ErrAlreadyPinned):
		return "already_pinned"
	case errors.Is(err, ErrItemUnavailable):
		return "item_unavailable"
	default:
		return "internal"
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
