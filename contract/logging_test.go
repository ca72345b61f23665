package contract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"presale_pool/contract"
	"presale_pool/state"
)

// TestOperationLogsCarryAmounts checks applied operations log their amount
// and event lines go to the "events" logger at debug.
func TestOperationLogsCarryAmounts(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	pool, err := contract.Create(ctx, contract.Dependencies{
		Backend: state.NewMemoryBackend(),
		Bank:    newFakeBank(),
		Logger:  zap.New(core),
	}, contract.CreateArgs{Administrator: admin, Settings: defaultSettings()})
	require.NoError(t, err)

	require.NoError(t, pool.Deposit(ctx, alice, eth(5)))
	require.NoError(t, pool.Withdraw(ctx, alice, eth(2)))

	applied := logs.FilterMessage("operation applied").All()
	require.Len(t, applied, 3, "create, deposit, withdraw")
	assert.Equal(t, "deposit", applied[1].ContextMap()["op"])
	assert.Equal(t, "5", applied[1].ContextMap()["amount"])
	assert.Equal(t, "2", applied[2].ContextMap()["amount"])

	events := logs.FilterLoggerName("events").All()
	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, zapcore.DebugLevel, e.Level)
		assert.Equal(t, "pool event", e.Message)
	}

	err = pool.Withdraw(ctx, alice, eth(50))
	assert.ErrorIs(t, err, contract.ErrInsufficientBalance)
	rejected := logs.FilterMessage("operation rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "50", rejected[0].ContextMap()["amount"])
	assert.Equal(t, zapcore.InfoLevel, rejected[0].Level)
}
