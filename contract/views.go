package contract

import (
	"context"

	"github.com/CosmWasm/tinyjson"
	"github.com/CosmWasm/tinyjson/jwriter"
	"github.com/holiman/uint256"

	"presale_pool/sdk"
)

// -----------------------------------------------------------------------------
// Read-only views
// -----------------------------------------------------------------------------

// State returns the current lifecycle state.
func (p *Pool) State(ctx context.Context) (PoolState, error) {
	var s PoolState
	err := p.read(ctx, func(t *txn) (err error) {
		s, err = t.loadState()
		return err
	})
	return s, err
}

// Config returns the creation parameters.
func (p *Pool) Config(ctx context.Context) (*PoolConfig, error) {
	var cfg *PoolConfig
	err := p.read(ctx, func(t *txn) (err error) {
		cfg, err = t.loadConfig()
		return err
	})
	return cfg, err
}

// Policy returns the active contribution settings.
func (p *Pool) Policy(ctx context.Context) (*Policy, error) {
	var pol *Policy
	err := p.read(ctx, func(t *txn) (err error) {
		pol, err = t.loadPolicy()
		return err
	})
	return pol, err
}

// Totals returns the pool-wide aggregates.
func (p *Pool) Totals(ctx context.Context) (*Aggregates, error) {
	var agg *Aggregates
	err := p.read(ctx, func(t *txn) (err error) {
		agg, err = t.loadAggregates()
		return err
	})
	return agg, err
}

// Participant looks up one record, ok is false for unknown addresses.
func (p *Pool) Participant(ctx context.Context, addr sdk.Address) (*Participant, bool, error) {
	var (
		part *Participant
		ok   bool
	)
	err := p.read(ctx, func(t *txn) (err error) {
		part, ok, err = t.loadParticipant(addr)
		return err
	})
	return part, ok, err
}

// Participants lists every record in deposit order, refunded ones included.
func (p *Pool) Participants(ctx context.Context) ([]*Participant, error) {
	var out []*Participant
	err := p.read(ctx, func(t *txn) error {
		agg, err := t.loadAggregates()
		if err != nil {
			return err
		}
		out = make([]*Participant, 0, agg.Participants)
		return t.forEachParticipant(agg.Participants, func(part *Participant) error {
			out = append(out, part)
			return nil
		})
	})
	return out, err
}

// -----------------------------------------------------------------------------
// Snapshot
// -----------------------------------------------------------------------------

// Snapshot is a consistent copy of the whole pool, taken under one lock.
type Snapshot struct {
	Config       *PoolConfig
	State        PoolState
	Policy       *Policy
	Totals       *Aggregates
	Participants []*Participant
}

// Held is what the pool currently holds: remaining plus contributions, or
// only remaining once the contributions were forwarded.
func (s *Snapshot) Held() *uint256.Int {
	if s.State == StatePaid {
		return s.Totals.TotalRemaining.Clone()
	}
	return new(uint256.Int).Add(s.Totals.TotalRemaining, s.Totals.TotalContribution)
}

// Snapshot reads config, state, policy, totals and every participant at once.
func (p *Pool) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := p.read(ctx, func(t *txn) error {
		var err error
		if snap.Config, err = t.loadConfig(); err != nil {
			return err
		}
		if snap.State, err = t.loadState(); err != nil {
			return err
		}
		if snap.Policy, err = t.loadPolicy(); err != nil {
			return err
		}
		if snap.Totals, err = t.loadAggregates(); err != nil {
			return err
		}
		snap.Participants = make([]*Participant, 0, snap.Totals.Participants)
		return t.forEachParticipant(snap.Totals.Participants, func(part *Participant) error {
			snap.Participants = append(snap.Participants, part)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// JSON renders the snapshot with amounts as decimal wei strings.
func (s *Snapshot) JSON() ([]byte, error) {
	return tinyjson.Marshal(s)
}

// MarshalTinyJSON writes the snapshot without reflection.
func (s *Snapshot) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"administrator":`)
	w.String(s.Config.Administrator.Hex())
	w.RawString(`,"token_drops":`)
	w.Uint32(s.Config.TokenDrops)
	w.RawString(`,"created_at":`)
	w.Int64(s.Config.CreatedAt)
	w.RawString(`,"state":`)
	w.String(s.State.String())
	w.RawString(`,"held":`)
	writeAmount(w, s.Held())

	w.RawString(`,"policy":{"min":`)
	writeAmount(w, s.Policy.MinContribution)
	w.RawString(`,"max":`)
	writeAmount(w, s.Policy.MaxContribution)
	w.RawString(`,"cap":`)
	writeAmount(w, s.Policy.MaxPoolBalance)
	w.RawString(`,"allow_list_only":`)
	w.Bool(s.Policy.AllowListOnly)
	w.RawString(`,"overrides":[`)
	for i, o := range s.Policy.Overrides {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawString(`{"address":`)
		w.String(o.Address.Hex())
		if o.Min != nil {
			w.RawString(`,"min":`)
			writeAmount(w, o.Min)
		}
		if o.Max != nil {
			w.RawString(`,"max":`)
			writeAmount(w, o.Max)
		}
		w.RawByte('}')
	}
	w.RawString(`]}`)

	a := s.Totals
	w.RawString(`,"totals":{"deposited":`)
	writeAmount(w, a.TotalDeposited)
	w.RawString(`,"contribution":`)
	writeAmount(w, a.TotalContribution)
	w.RawString(`,"remaining":`)
	writeAmount(w, a.TotalRemaining)
	w.RawString(`,"withdrawn":`)
	writeAmount(w, a.TotalWithdrawn)
	w.RawString(`,"forwarded":`)
	writeAmount(w, a.TotalForwarded)
	w.RawString(`,"fees":`)
	writeAmount(w, a.TotalFees)
	w.RawString(`,"gas_deducted":`)
	writeAmount(w, a.TotalGasDeducted)
	w.RawString(`,"participants":`)
	w.Uint64(a.Participants)
	w.RawByte('}')

	w.RawString(`,"participants":[`)
	for i, part := range s.Participants {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawString(`{"address":`)
		w.String(part.Address.Hex())
		w.RawString(`,"seq":`)
		w.Uint64(part.Seq)
		w.RawString(`,"remaining":`)
		writeAmount(w, part.Remaining)
		w.RawString(`,"contribution":`)
		writeAmount(w, part.Contribution)
		w.RawByte('}')
	}
	w.RawString(`]}`)
}

// writeAmount quotes wei so consumers never lose precision.
func writeAmount(w *jwriter.Writer, v *uint256.Int) {
	w.String(sdk.Clone(v).Dec())
}
