package contract_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"presale_pool/contract"
	"presale_pool/sdk"
	"presale_pool/state"
)

var (
	admin  = testAddress(0xad)
	alice  = testAddress(0xa1)
	bob    = testAddress(0xb0)
	carol  = testAddress(0xc0)
	keeper = testAddress(0xee)
	target = testAddress(0x77)
)

var errBankDown = errors.New("bank down")

// testAddress builds a deterministic non-zero address from one byte.
func testAddress(b byte) sdk.Address {
	var a sdk.Address
	a[0] = 0x01
	a[19] = b
	return a
}

func eth(n uint64) *uint256.Int { return sdk.Ether(n) }

func milliEth(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000))
}

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

// fakeBank records payouts and can be told to reject one address.
type fakeBank struct {
	mu       sync.Mutex
	received map[sdk.Address]*uint256.Int
	reject   map[sdk.Address]bool
	calls    int
}

func newFakeBank() *fakeBank {
	return &fakeBank{received: map[sdk.Address]*uint256.Int{}, reject: map[sdk.Address]bool{}}
}

func (b *fakeBank) Transfer(_ context.Context, to sdk.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.reject[to] {
		return errBankDown
	}
	cur := b.received[to]
	if cur == nil {
		cur = sdk.Zero()
	}
	b.received[to] = new(uint256.Int).Add(cur, amount)
	return nil
}

func (b *fakeBank) Received(a sdk.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return sdk.Clone(b.received[a])
}

// fakeTarget is the presale sink.
type fakeTarget struct {
	payments []contract.Payment
	err      error
}

func (f *fakeTarget) Accept(_ context.Context, p contract.Payment) error {
	if f.err != nil {
		return f.err
	}
	f.payments = append(f.payments, p)
	return nil
}

// fixedGas returns the same deduction for every estimate.
type fixedGas struct {
	gas   *uint256.Int
	err   error
	calls int
}

func (g *fixedGas) Estimate(_, _ uint64) (*uint256.Int, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.gas.Clone(), nil
}

// brokenFees is a fee provider that is always down.
type brokenFees struct {
	err error
}

func (f brokenFees) Fee(context.Context, *uint256.Int) (*uint256.Int, error) {
	return nil, f.err
}

// recorder collects event lines.
type recorder struct {
	lines []string
}

func (r *recorder) Emit(line string) { r.lines = append(r.lines, line) }

// -----------------------------------------------------------------------------
// Harness
// -----------------------------------------------------------------------------

type harness struct {
	ctx     context.Context
	pool    *contract.Pool
	backend *state.MemoryBackend
	bank    *fakeBank
	target  *fakeTarget
	gas     *fixedGas
	events  *recorder
}

// settings builds a policy from whole ether amounts.
func settings(min, max, cap uint64) contract.Settings {
	return contract.Settings{
		MinContribution: eth(min),
		MaxContribution: eth(max),
		MaxPoolBalance:  eth(cap),
	}
}

func defaultSettings() contract.Settings { return settings(1, 100, 1000) }

// setupPool creates a fresh in-memory pool with fakes wired in.
func setupPool(t *testing.T, drops uint32, s contract.Settings) *harness {
	t.Helper()
	h := &harness{
		ctx:     context.Background(),
		backend: state.NewMemoryBackend(),
		bank:    newFakeBank(),
		target:  &fakeTarget{},
		gas:     &fixedGas{gas: milliEth(100)},
		events:  &recorder{},
	}
	fees, err := contract.NewFeeSchedule(100, sdk.Zero(), sdk.Zero())
	require.NoError(t, err)
	pool, err := contract.Create(h.ctx, contract.Dependencies{
		Backend: h.backend,
		Bank:    h.bank,
		Fees:    fees,
		Gas:     h.gas,
		Target:  h.target,
		Events:  h.events,
		Logger:  zaptest.NewLogger(t),
	}, contract.CreateArgs{Administrator: admin, TokenDrops: drops, Settings: s})
	require.NoError(t, err)
	h.pool = pool
	return h
}

func (h *harness) deposit(t *testing.T, who sdk.Address, amount *uint256.Int) {
	t.Helper()
	require.NoError(t, h.pool.Deposit(h.ctx, who, amount))
}

// requireSplit asserts one participant's remaining and contribution.
func (h *harness) requireSplit(t *testing.T, who sdk.Address, remaining, contribution *uint256.Int) {
	t.Helper()
	p, ok, err := h.pool.Participant(h.ctx, who)
	require.NoError(t, err)
	require.True(t, ok, "participant %s missing", who.Hex())
	assert.Equal(t, remaining.Dec(), p.Remaining.Dec(), "remaining of %s", sdk.ShortAddress(who))
	assert.Equal(t, contribution.Dec(), p.Contribution.Dec(), "contribution of %s", sdk.ShortAddress(who))
}

// dump copies every stored key so tests can prove a call changed nothing.
func (h *harness) dump(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, k := range h.backend.Keys() {
		v, err := h.backend.Get(h.ctx, k)
		require.NoError(t, err)
		out[k] = string(v)
	}
	return out
}

// checkInvariants verifies conservation, the cap and the per-participant
// bounds, and that the totals match the participant records.
func (h *harness) checkInvariants(t *testing.T) {
	t.Helper()
	snap, err := h.pool.Snapshot(h.ctx)
	require.NoError(t, err)
	a := snap.Totals

	sumR, sumC := sdk.Zero(), sdk.Zero()
	for _, p := range snap.Participants {
		sumR.Add(sumR, p.Remaining)
		sumC.Add(sumC, p.Contribution)
	}
	assert.Equal(t, sumR.Dec(), a.TotalRemaining.Dec(), "remaining total")

	lhs := new(uint256.Int).Add(a.TotalRemaining, a.TotalWithdrawn)
	lhs.Add(lhs, a.TotalGasDeducted)
	if snap.State == contract.StatePaid {
		lhs.Add(lhs, a.TotalForwarded)
		lhs.Add(lhs, a.TotalFees)
	} else {
		assert.Equal(t, sumC.Dec(), a.TotalContribution.Dec(), "contribution total")
		lhs.Add(lhs, a.TotalContribution)
		assert.False(t, a.TotalContribution.Gt(snap.Policy.MaxPoolBalance), "pool cap exceeded")
		for _, p := range snap.Participants {
			assert.False(t, p.Contribution.Gt(maxFor(snap.Policy, p.Address)), "max exceeded for %s", p.Address.Hex())
		}
	}
	assert.Equal(t, a.TotalDeposited.Dec(), lhs.Dec(), "conservation")
}

func maxFor(p *contract.Policy, a sdk.Address) *uint256.Int {
	for _, o := range p.Overrides {
		if o.Address == a && o.Max != nil {
			return o.Max
		}
	}
	return p.MaxContribution
}

// eventsWithPrefix filters the recorded lines.
func (h *harness) eventsWithPrefix(prefix string) []string {
	var out []string
	for _, l := range h.events.lines {
		if len(l) >= len(prefix) && l[:len(prefix)] == prefix {
			out = append(out, l)
		}
	}
	return out
}
