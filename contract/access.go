package contract

import (
	"fmt"

	"presale_pool/sdk"
)

// Operation names every mutating entry point of the pool.
type Operation uint8

const (
	OpDeposit Operation = iota + 1
	OpWithdraw
	OpWithdrawAll
	OpWithdrawAllForMany
	OpSetContributionSettings
	OpFail
	OpPayToPresale
)

// String returns the snake_case name used in logs and events.
func (o Operation) String() string {
	switch o {
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	case OpWithdrawAll:
		return "withdraw_all"
	case OpWithdrawAllForMany:
		return "withdraw_all_for_many"
	case OpSetContributionSettings:
		return "set_contribution_settings"
	case OpFail:
		return "fail"
	case OpPayToPresale:
		return "pay_to_presale"
	default:
		return "unknown"
	}
}

// Role is the minimum identity an operation requires.
type Role uint8

const (
	RoleAnyone Role = iota
	RoleParticipant
	RoleAdministrator
)

func (r Role) String() string {
	switch r {
	case RoleParticipant:
		return "participant"
	case RoleAdministrator:
		return "administrator"
	default:
		return "anyone"
	}
}

// requiredRoles is the whole access matrix. withdraw_all and the batch refund are open
// to anyone: funds only ever go back to the record owner.
var requiredRoles = map[Operation]Role{
	OpDeposit:                 RoleAnyone,
	OpWithdraw:                RoleParticipant,
	OpWithdrawAll:             RoleAnyone,
	OpWithdrawAllForMany:      RoleAnyone,
	OpSetContributionSettings: RoleAdministrator,
	OpFail:                    RoleAdministrator,
	OpPayToPresale:            RoleAdministrator,
}

// RequiredRole exposes the matrix for tooling and tests.
func RequiredRole(op Operation) (Role, bool) {
	r, ok := requiredRoles[op]
	return r, ok
}

// AccessControl resolves a caller against the pool roles.
type AccessControl struct {
	Administrator sdk.Address
	// IsParticipant reports whether addr holds a participant record.
	IsParticipant func(addr sdk.Address) (bool, error)
}

// Check returns nil when caller may run op, ErrUnauthorized otherwise.
func (ac AccessControl) Check(caller sdk.Address, op Operation) error {
	role, ok := requiredRoles[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %d", ErrUnauthorized, op)
	}
	if caller == sdk.ZeroAddress {
		return fmt.Errorf("%w: %s requires a caller", ErrUnauthorized, op)
	}
	switch role {
	case RoleAnyone:
		return nil
	case RoleAdministrator:
		if caller != ac.Administrator {
			return fmt.Errorf("%w: %s is administrator only", ErrUnauthorized, op)
		}
		return nil
	case RoleParticipant:
		if ac.IsParticipant == nil {
			return fmt.Errorf("%w: %s needs a participant lookup", ErrUnauthorized, op)
		}
		member, err := ac.IsParticipant(caller)
		if err != nil {
			return err
		}
		if !member {
			return fmt.Errorf("%w: %s is participant only", ErrUnauthorized, op)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnauthorized, op)
}

// accessControl binds the matrix to the current transaction.
func (t *txn) accessControl(cfg *PoolConfig) AccessControl {
	return AccessControl{
		Administrator: cfg.Administrator,
		IsParticipant: func(addr sdk.Address) (bool, error) {
			_, ok, err := t.loadParticipant(addr)
			return ok, err
		},
	}
}
