package contract

import (
	"github.com/holiman/uint256"

	"presale_pool/sdk"
)

// allocate is the per-participant step of the reallocation: accept as much
// of net as the limits and the remaining pool headroom permit, or nothing at
// all when that would land below the participant's minimum.
func allocate(net *uint256.Int, l limits, headroom *uint256.Int) *uint256.Int {
	if !l.allowed {
		return sdk.Zero()
	}
	desired := sdk.MinOf(net, l.max, headroom)
	if desired.Lt(l.min) {
		return sdk.Zero()
	}
	return desired
}

// reallocate recomputes every participant's split in deposit order, so the
// earliest depositors get the scarce pool headroom first. Each participant's
// remaining + contribution is unchanged; aggregates are rebuilt from the pass.
func (t *txn) reallocate(policy *Policy, agg *Aggregates) error {
	view := newPolicyView(policy)
	headroom := policy.MaxPoolBalance.Clone()
	totalContribution := sdk.Zero()
	totalRemaining := sdk.Zero()

	err := t.forEachParticipant(agg.Participants, func(p *Participant) error {
		net := p.Balance()
		contribution := allocate(net, view.limitsFor(p.Address), headroom)
		headroom.Sub(headroom, contribution)

		totalContribution.Add(totalContribution, contribution)
		totalRemaining.Add(totalRemaining, new(uint256.Int).Sub(net, contribution))

		if contribution.Eq(p.Contribution) {
			return nil
		}
		p.Contribution = contribution
		p.Remaining = new(uint256.Int).Sub(net, contribution)
		if err := t.saveParticipant(p); err != nil {
			return err
		}
		emitReallocated(t, p)
		return nil
	})
	if err != nil {
		return err
	}

	agg.TotalContribution = totalContribution
	agg.TotalRemaining = totalRemaining
	return nil
}

// allocateOne is the single-participant form used after a deposit. The
// headroom is whatever the cap leaves once everyone else's contribution is
// counted. Aggregates are adjusted by the delta.
func allocateOne(p *Participant, view *policyView, agg *Aggregates) {
	others := new(uint256.Int).Sub(agg.TotalContribution, p.Contribution)
	headroom := sdk.SubFloor(view.policy.MaxPoolBalance, others)
	net := p.Balance()
	contribution := allocate(net, view.limitsFor(p.Address), headroom)

	agg.TotalContribution = new(uint256.Int).Add(others, contribution)
	otherRemaining := new(uint256.Int).Sub(agg.TotalRemaining, p.Remaining)
	p.Contribution = contribution
	p.Remaining = new(uint256.Int).Sub(net, contribution)
	agg.TotalRemaining = otherRemaining.Add(otherRemaining, p.Remaining)
}

// debit takes amount from remaining first, then contribution. The caller has
// already checked amount <= balance.
func debit(p *Participant, amount *uint256.Int) {
	if !amount.Gt(p.Remaining) {
		p.Remaining = new(uint256.Int).Sub(p.Remaining, amount)
		return
	}
	rest := new(uint256.Int).Sub(amount, p.Remaining)
	p.Remaining = sdk.Zero()
	p.Contribution = new(uint256.Int).Sub(p.Contribution, rest)
}
