package services

import (
	"fmt"

	"gorm.io/gorm"
)

// AccessControl is the shared "is this caller an admin" predicate used by
// bounties, items and announcements.
type AccessControl interface {
	IsAdmin(userID string) (bool, error)
}

// CreditLedger is the balance store the engine mints into. Mint and Spend run
// on the caller's transaction so they commit or roll back with it.
type CreditLedger interface {
	BalanceOf(userID string) (int64, error)
	Mint(tx *gorm.DB, userID string, amount int64) error
	Spend(tx *gorm.DB, userID string, amount int64) error
}

func requireAdmin(ac AccessControl, caller string) error {
	if caller == "" {
		return ErrUnauthorized
	}
	ok, err := ac.IsAdmin(caller)
	if err != nil {
		return fmt.Errorf("admin check for %s: %w", caller, err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
