package services

import (
	"errors"
	"fmt"

	"market-ledger/internal/filelock"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// Domain errors returned by the services. Purchase rejections are reported
// through PurchaseResult.Outcome instead.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAlreadySold         = errors.New("item already sold")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrUnauthorized        = errors.New("invalid credentials")
	ErrLockTimeout         = filelock.ErrLockTimeout
)

// translate maps repository and model errors onto the domain taxonomy while
// keeping the original error in the chain
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case repositories.IsNotFound(err):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case repositories.IsConcurrency(err):
		return fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
	case repositories.IsValidation(err),
		repositories.IsDuplicate(err),
		repositories.IsConstraint(err),
		errors.Is(err, repositories.ErrInvalidID),
		errors.Is(err, models.ErrInvalidField):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
