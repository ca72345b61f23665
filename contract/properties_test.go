package contract_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"presale_pool/contract"
	"presale_pool/sdk"
)

// TestRandomOperationsKeepInvariants drives random deposits, withdrawals and
// policy changes and checks conservation, the caps and the floor after each step.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		h := setupPool(t, 1, settings(2, 6, 20))
		people := []sdk.Address{alice, bob, carol, keeper}

		for step := 0; step < 150; step++ {
			who := people[rng.Intn(len(people))]
			var err error
			switch rng.Intn(6) {
			case 0, 1, 2:
				err = h.pool.Deposit(h.ctx, who, eth(uint64(rng.Intn(8))))
			case 3:
				err = h.pool.Withdraw(h.ctx, who, eth(uint64(rng.Intn(5))))
			case 4:
				_, err = h.pool.WithdrawAll(h.ctx, who)
			case 5:
				min := uint64(rng.Intn(4))
				max := min + uint64(rng.Intn(8))
				s := settings(min, max, uint64(rng.Intn(30)))
				if rng.Intn(2) == 0 {
					s.Overrides = []contract.Override{{Address: who, Max: eth(max + 3)}}
				}
				err = h.pool.SetContributionSettings(h.ctx, admin, s)
			}
			if err != nil {
				require.True(t,
					errors.Is(err, contract.ErrUnauthorized) ||
						errors.Is(err, contract.ErrInsufficientBalance) ||
						errors.Is(err, contract.ErrBelowMinimumContribution),
					"seed %d step %d: unexpected %v", seed, step, err)
			}
			h.checkInvariants(t)
			h.checkFloor(t)
		}

		require.NoError(t, h.pool.Fail(h.ctx, admin))
		_, err := h.pool.WithdrawAllForMany(h.ctx, keeper, people)
		require.NoError(t, err)
		h.checkInvariants(t)

		totals, err := h.pool.Totals(h.ctx)
		require.NoError(t, err)
		require.True(t, totals.TotalContribution.IsZero())
		require.True(t, totals.TotalRemaining.IsZero())
	}
}

// checkFloor asserts every contribution is zero or at least the effective minimum.
func (h *harness) checkFloor(t *testing.T) {
	t.Helper()
	snap, err := h.pool.Snapshot(h.ctx)
	require.NoError(t, err)
	for _, p := range snap.Participants {
		if p.Contribution.IsZero() {
			continue
		}
		min := snap.Policy.MinContribution
		for _, o := range snap.Policy.Overrides {
			if o.Address == p.Address && o.Min != nil {
				min = o.Min
			}
		}
		require.False(t, p.Contribution.Lt(min), "floor broken for %s", p.Address.Hex())
	}
}
