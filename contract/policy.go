package contract

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"presale_pool/sdk"
)

// limits are the effective bounds for one participant.
type limits struct {
	min     *uint256.Int
	max     *uint256.Int
	allowed bool
}

// policyView indexes the override list once so a reallocation pass stays O(n).
type policyView struct {
	policy    *Policy
	overrides map[sdk.Address]Override
}

func newPolicyView(p *Policy) *policyView {
	v := &policyView{policy: p, overrides: make(map[sdk.Address]Override, len(p.Overrides))}
	for _, o := range p.Overrides {
		v.overrides[o.Address] = o
	}
	return v
}

// limitsFor resolves the override (if any) on top of the global bounds.
func (v *policyView) limitsFor(addr sdk.Address) limits {
	l := limits{min: v.policy.MinContribution, max: v.policy.MaxContribution, allowed: !v.policy.AllowListOnly}
	o, ok := v.overrides[addr]
	if !ok {
		return l
	}
	l.allowed = true
	if o.Min != nil {
		l.min = o.Min
	}
	if o.Max != nil {
		l.max = o.Max
	}
	return l
}

// ValidatePolicy checks min <= max globally and per override, and that the
// override list names each non-zero address once.
func ValidatePolicy(p *Policy) error {
	if p == nil || p.MinContribution == nil || p.MaxContribution == nil || p.MaxPoolBalance == nil {
		return fmt.Errorf("%w: min, max and pool cap are required", ErrInvalidPolicy)
	}
	if p.MinContribution.Gt(p.MaxContribution) {
		return fmt.Errorf("%w: min %s above max %s", ErrInvalidPolicy,
			sdk.WeiToEther(p.MinContribution), sdk.WeiToEther(p.MaxContribution))
	}
	seen := make(map[sdk.Address]struct{}, len(p.Overrides))
	for _, o := range p.Overrides {
		if o.Address == sdk.ZeroAddress {
			return fmt.Errorf("%w: override for zero address", ErrInvalidPolicy)
		}
		if _, dup := seen[o.Address]; dup {
			return fmt.Errorf("%w: duplicate override for %s", ErrInvalidPolicy, o.Address.Hex())
		}
		seen[o.Address] = struct{}{}
		min, max := p.MinContribution, p.MaxContribution
		if o.Min != nil {
			min = o.Min
		}
		if o.Max != nil {
			max = o.Max
		}
		if min.Gt(max) {
			return fmt.Errorf("%w: override for %s has min above max", ErrInvalidPolicy, o.Address.Hex())
		}
	}
	return nil
}

// clonePolicy deep-copies amounts so callers can reuse their Settings value.
func clonePolicy(p *Policy) *Policy {
	out := &Policy{
		MinContribution: sdk.Clone(p.MinContribution),
		MaxContribution: sdk.Clone(p.MaxContribution),
		MaxPoolBalance:  sdk.Clone(p.MaxPoolBalance),
		AllowListOnly:   p.AllowListOnly,
		Overrides:       make([]Override, 0, len(p.Overrides)),
	}
	for _, o := range p.Overrides {
		c := Override{Address: o.Address}
		if o.Min != nil {
			c.Min = o.Min.Clone()
		}
		if o.Max != nil {
			c.Max = o.Max.Clone()
		}
		out.Overrides = append(out.Overrides, c)
	}
	return out
}

// SetContributionSettings replaces the policy and reallocates every participant.
func (p *Pool) SetContributionSettings(ctx context.Context, caller sdk.Address, s Settings) error {
	return p.exec(ctx, OpSetContributionSettings, caller, func(t *txn) error {
		if _, _, err := t.guard(caller, OpSetContributionSettings); err != nil {
			return err
		}
		if err := ValidatePolicy(&s); err != nil {
			return err
		}
		policy := clonePolicy(&s)
		agg, err := t.loadAggregates()
		if err != nil {
			return err
		}
		if err := t.reallocate(policy, agg); err != nil {
			return err
		}
		if err := t.savePolicy(policy); err != nil {
			return err
		}
		if err := t.saveAggregates(agg); err != nil {
			return err
		}
		emitSettingsChanged(t, policy)
		return nil
	})
}
