package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"presale_pool/contract"
	"presale_pool/sdk"
	"presale_pool/state"
)

const (
	payoutIndexKey  = "payout:index"
	payoutKeyPrefix = "payout:"

	PayoutKindTransfer = "transfer"
	PayoutKindPresale  = "presale"
)

// Payout is one outgoing movement recorded by the CLI in place of a real bank.
type Payout struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Amount  string `json:"amount"`
	Fee     string `json:"fee,omitempty"`
	Payload string `json:"payload,omitempty"`
	At      int64  `json:"at"`
}

// PayoutLog records transfers and presale payments in the store. It serves
// both as the pool's Transferer and its DistributionTarget.
type PayoutLog struct {
	mu      sync.Mutex
	backend state.Backend
	now     func() time.Time
}

func NewPayoutLog(b state.Backend) *PayoutLog {
	return &PayoutLog{backend: b, now: time.Now}
}

// Transfer logs a refund or withdrawal payout.
func (l *PayoutLog) Transfer(ctx context.Context, to sdk.Address, amount *uint256.Int) error {
	return l.append(ctx, Payout{
		Kind:   PayoutKindTransfer,
		To:     to.Hex(),
		Amount: amount.Dec(),
	})
}

// Accept logs the presale forward.
func (l *PayoutLog) Accept(ctx context.Context, p contract.Payment) error {
	return l.append(ctx, Payout{
		Kind:    PayoutKindPresale,
		To:      p.Target.Hex(),
		Amount:  p.Amount.Dec(),
		Fee:     p.Fee.Dec(),
		Payload: string(p.Payload),
	})
}

// append stores the record and its id in the index in one batch.
func (l *PayoutLog) append(ctx context.Context, p Payout) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p.ID = uuid.NewString()
	p.At = l.now().Unix()

	ids, err := l.index(ctx)
	if err != nil {
		return err
	}
	ids = append(ids, p.ID)

	rec, err := json.Marshal(p)
	if err != nil {
		return err
	}
	idx, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return l.backend.Apply(ctx, []state.Op{
		{Key: payoutKeyPrefix + p.ID, Value: rec},
		{Key: payoutIndexKey, Value: idx},
	})
}

func (l *PayoutLog) index(ctx context.Context) ([]string, error) {
	raw, err := l.backend.Get(ctx, payoutIndexKey)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("payout index: %w", err)
	}
	return ids, nil
}

// List returns every payout in the order it happened.
func (l *PayoutLog) List(ctx context.Context) ([]Payout, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := l.index(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Payout, 0, len(ids))
	for _, id := range ids {
		raw, err := l.backend.Get(ctx, payoutKeyPrefix+id)
		if err != nil {
			return nil, fmt.Errorf("payout %s: %w", id, err)
		}
		var p Payout
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("payout %s: %w", id, err)
		}
		out = append(out, p)
	}
	return out, nil
}
