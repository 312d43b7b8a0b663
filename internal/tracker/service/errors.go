package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingAccounts    = errors.New("both sides need at least one account")
	ErrAccountOnBothSides = errors.New("account listed on both sides")
	ErrUnbalancedSides    = errors.New("sides must have the same number of accounts")
	ErrUnknownResultType  = errors.New("unknown result type")
)
