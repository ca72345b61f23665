package contract_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presale_pool/contract"
	"presale_pool/state"
)

// TestSnapshotJSON checks the json view carries exact wei strings.
func TestSnapshotJSON(t *testing.T) {
	h := setupPool(t, 3, settings(1, 4, 1000))
	h.deposit(t, alice, eth(6))

	snap, err := h.pool.Snapshot(h.ctx)
	require.NoError(t, err)
	raw, err := snap.JSON()
	require.NoError(t, err)

	var doc struct {
		Administrator string `json:"administrator"`
		TokenDrops    uint32 `json:"token_drops"`
		State         string `json:"state"`
		Held          string `json:"held"`
		Policy        struct {
			Max string `json:"max"`
		} `json:"policy"`
		Totals struct {
			Deposited    string `json:"deposited"`
			Participants uint64 `json:"participants"`
		} `json:"totals"`
		Participants []struct {
			Address      string `json:"address"`
			Remaining    string `json:"remaining"`
			Contribution string `json:"contribution"`
		} `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, admin.Hex(), doc.Administrator)
	assert.Equal(t, uint32(3), doc.TokenDrops)
	assert.Equal(t, "open", doc.State)
	assert.Equal(t, "6000000000000000000", doc.Held)
	assert.Equal(t, "4000000000000000000", doc.Policy.Max)
	assert.Equal(t, uint64(1), doc.Totals.Participants)
	require.Len(t, doc.Participants, 1)
	assert.Equal(t, "2000000000000000000", doc.Participants[0].Remaining)
	assert.Equal(t, "4000000000000000000", doc.Participants[0].Contribution)
}

// TestPoolSurvivesRestart checks a leveldb or redis backed pool picks up where it left off.
func TestPoolSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	dir := filepath.Join(t.TempDir(), "pool")

	open := map[string]func() state.Backend{
		"leveldb": func() state.Backend {
			b, err := state.OpenLevelDB(dir, false)
			require.NoError(t, err)
			return b
		},
		"redis": func() state.Backend {
			b, err := state.OpenRedis(ctx, state.RedisConfig{Address: mr.Addr(), Namespace: "restart"})
			require.NoError(t, err)
			return b
		},
	}
	for name, openBackend := range open {
		t.Run(name, func(t *testing.T) {
			bank := newFakeBank()
			b := openBackend()
			pool, err := contract.Create(ctx, contract.Dependencies{Backend: b, Bank: bank},
				contract.CreateArgs{Administrator: admin, Settings: settings(1, 5, 100)})
			require.NoError(t, err)
			require.NoError(t, pool.Deposit(ctx, alice, eth(7)))
			require.NoError(t, pool.Fail(ctx, admin))
			require.NoError(t, b.Close())

			b = openBackend()
			defer b.Close()
			pool, err = contract.Load(ctx, contract.Dependencies{Backend: b, Bank: bank})
			require.NoError(t, err)
			s, err := pool.State(ctx)
			require.NoError(t, err)
			assert.Equal(t, contract.StateFailed, s)

			r, err := pool.WithdrawAll(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, eth(7).Dec(), r.Net.Dec())
		})
	}
}
