package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrOperationFailed     = errors.New("operation failed")
	ErrInvalidExecContext  = errors.New("invalid execution context")
	ErrReadDatabaseRow     = errors.New("failed to read database row")
	ErrSettlementInFlight  = errors.New("settlement already in progress for this payment")
	ErrProfileUnresolvable = errors.New("no profile could be resolved for this settlement")
	ErrRewardImmutable     = errors.New("affiliate reward already paid out")
)
