package contract

import (
	"fmt"

	"presale_pool/sdk"
)

// loadParticipant returns (nil, false, nil) when the address never deposited.
func (t *txn) loadParticipant(addr sdk.Address) (*Participant, bool, error) {
	raw, ok, err := t.get(participantKey(addr))
	if err != nil || !ok {
		return nil, false, err
	}
	p, err := DecodeParticipant(raw)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// saveParticipant persists the record; zeroed records stay as tombstones.
func (t *txn) saveParticipant(p *Participant) error {
	return t.set(participantKey(p.Address), EncodeParticipant(p))
}

// createParticipant assigns the next deposit sequence number and indexes it.
func (t *txn) createParticipant(addr sdk.Address, agg *Aggregates) (*Participant, error) {
	p := &Participant{
		Address:      addr,
		Seq:          agg.Participants,
		Remaining:    sdk.Zero(),
		Contribution: sdk.Zero(),
	}
	if err := t.set(participantOrderKey(p.Seq), addr.Bytes()); err != nil {
		return nil, err
	}
	agg.Participants++
	return p, nil
}

// forEachParticipant walks the deposit-order index from the first depositor.
func (t *txn) forEachParticipant(count uint64, fn func(p *Participant) error) error {
	for seq := uint64(0); seq < count; seq++ {
		raw, ok, err := t.get(participantOrderKey(seq))
		if err != nil {
			return err
		}
		if !ok || len(raw) != len(sdk.Address{}) {
			return fmt.Errorf("%w: order index %d", ErrCorruptState, seq)
		}
		var addr sdk.Address
		copy(addr[:], raw)
		p, ok, err := t.loadParticipant(addr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: participant %s indexed but missing", ErrCorruptState, addr.Hex())
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}
