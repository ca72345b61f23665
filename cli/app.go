package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"presale_pool/config"
	"presale_pool/contract"
	"presale_pool/sdk"
	"presale_pool/state"
)

// app is what every command works against: config, logger, store and the payout log.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	backend state.Backend
	payouts *PayoutLog
}

func openApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	backend, err := cfg.OpenBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &app{cfg: cfg, log: log, backend: backend, payouts: NewPayoutLog(backend)}, nil
}

func (a *app) close() {
	if err := a.backend.Close(); err != nil {
		a.log.Warn("closing store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// deps wires the configured collaborators around the store.
func (a *app) deps() (contract.Dependencies, error) {
	fees, err := a.cfg.FeeSchedule()
	if err != nil {
		return contract.Dependencies{}, err
	}
	gas, err := a.cfg.GasEstimator()
	if err != nil {
		return contract.Dependencies{}, err
	}
	return contract.Dependencies{
		Backend: a.backend,
		Bank:    a.payouts,
		Fees:    fees,
		Gas:     gas,
		Target:  a.payouts,
		Logger:  a.log,
	}, nil
}

func (a *app) pool(ctx context.Context) (*contract.Pool, error) {
	deps, err := a.deps()
	if err != nil {
		return nil, err
	}
	return contract.Load(ctx, deps)
}

// -----------------------------------------------------------------------------
// Argument parsing
// -----------------------------------------------------------------------------

// parseEther accepts an ether decimal, empty means "not given".
func parseEther(val string) (*uint256.Int, error) {
	if strings.TrimSpace(val) == "" {
		return nil, nil
	}
	return sdk.EtherToWei(val)
}

// orCurrent keeps cur when the flag was left empty.
func orCurrent(val string, cur *uint256.Int) (*uint256.Int, error) {
	v, err := parseEther(val)
	if err != nil || v == nil {
		return cur, err
	}
	return v, nil
}

// parseOverride reads "address:min:max" where min or max may be left empty.
// Example payload: "0xabc...:0.5:"
func parseOverride(raw string) (contract.Override, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return contract.Override{}, fmt.Errorf("override %q: want address:min:max", raw)
	}
	addr, err := sdk.ParseAddress(parts[0])
	if err != nil {
		return contract.Override{}, err
	}
	o := contract.Override{Address: addr}
	if o.Min, err = parseEther(parts[1]); err != nil {
		return contract.Override{}, err
	}
	if o.Max, err = parseEther(parts[2]); err != nil {
		return contract.Override{}, err
	}
	return o, nil
}
