package contract

import (
	"errors"

	"presale_pool/sdk"
)

var (
	ErrUnauthorized             = errors.New("unauthorized")
	ErrInvalidState             = errors.New("invalid state")
	ErrInvalidPolicy            = errors.New("invalid policy")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrBelowMinimumContribution = errors.New("below minimum contribution")
	ErrExternalCallFailed       = errors.New("external call failed")
	ErrNotInitialized           = errors.New("pool not initialized")
	ErrAlreadyInitialized       = errors.New("pool already initialized")
	ErrInvalidAddress           = sdk.ErrInvalidAddress
	ErrInvalidAmount            = sdk.ErrInvalidAmount
	ErrCorruptState             = errors.New("corrupt pool state")
)
