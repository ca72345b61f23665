package contract

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"presale_pool/sdk"
)

// EventSink receives the terse event lines after a successful commit.
type EventSink interface {
	Emit(line string)
}

// zapSink writes event lines at debug through a logger named "events", so
// they can be filtered apart from operation logs.
type zapSink struct {
	log *zap.Logger
}

func (s zapSink) Emit(line string) {
	s.log.Debug("pool event", zap.String("event", line))
}

// emitInitEvent marks pool creation so indexers know where history starts.
func emitInitEvent(t *txn, cfg *PoolConfig) {
	t.emit(fmt.Sprintf("init|by:%s|drops:%d", cfg.Administrator.Hex(), cfg.TokenDrops))
}

// emitDeposit writes a "dp" line per accepted deposit.
func emitDeposit(t *txn, p *Participant, amount *uint256.Int) {
	t.emit(fmt.Sprintf(
		"dp|by:%s|am:%s|c:%s|r:%s",
		p.Address.Hex(),
		amount.Dec(),
		p.Contribution.Dec(),
		p.Remaining.Dec(),
	))
}

// emitWithdraw mirrors the deposit line for partial withdrawals.
func emitWithdraw(t *txn, p *Participant, amount *uint256.Int) {
	t.emit(fmt.Sprintf(
		"wd|to:%s|am:%s|c:%s|r:%s",
		p.Address.Hex(),
		amount.Dec(),
		p.Contribution.Dec(),
		p.Remaining.Dec(),
	))
}

// emitRefund covers full exits and batch refunds, gas shows the drop deduction.
func emitRefund(t *txn, r *Refund) {
	t.emit(fmt.Sprintf(
		"rf|to:%s|am:%s|gas:%s",
		r.Address.Hex(),
		r.Net.Dec(),
		r.Gas.Dec(),
	))
}

// emitReallocated lets watchers replay policy passes participant by participant.
func emitReallocated(t *txn, p *Participant) {
	t.emit(fmt.Sprintf(
		"ra|by:%s|c:%s|r:%s",
		p.Address.Hex(),
		p.Contribution.Dec(),
		p.Remaining.Dec(),
	))
}

// emitSettingsChanged spells out the new bounds for auditors.
func emitSettingsChanged(t *txn, p *Policy) {
	t.emit(fmt.Sprintf(
		"cs|min:%s|max:%s|cap:%s|ov:%d|al:%t",
		p.MinContribution.Dec(),
		p.MaxContribution.Dec(),
		p.MaxPoolBalance.Dec(),
		len(p.Overrides),
		p.AllowListOnly,
	))
}

// emitStateChanged is logged on every lifecycle flip.
func emitStateChanged(t *txn, s PoolState) {
	t.emit(fmt.Sprintf("st|s:%s", s))
}

// emitPaid records what left the pool and what the fee was.
func emitPaid(t *txn, p *Payment) {
	t.emit(fmt.Sprintf(
		"pay|to:%s|am:%s|fee:%s|data:%d",
		p.Target.Hex(),
		p.Amount.Dec(),
		p.Fee.Dec(),
		len(p.Payload),
	))
}

// shortCaller keeps log fields readable.
func shortCaller(a sdk.Address) zap.Field {
	return zap.String("caller", sdk.ShortAddress(a))
}
