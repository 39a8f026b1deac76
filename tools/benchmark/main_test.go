package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	latencies := []time.Duration{
		5 * time.Millisecond,
		1 * time.Millisecond,
		3 * time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
	}

	assert.Equal(t, 3*time.Millisecond, percentile(latencies, 50))
	assert.Equal(t, 5*time.Millisecond, percentile(latencies, 100))
	assert.Equal(t, 1*time.Millisecond, percentile(latencies, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "10.00/s", formatRate(100, 10*time.Second))
	assert.Equal(t, "N/A", formatRate(100, 0))
}

func TestPercentageString(t *testing.T) {
	assert.Equal(t, "50.00%", percentageString(1, 2))
	assert.Equal(t, "0.00%", percentageString(0, 0))
}

func TestCollectStats(t *testing.T) {
	results := make(chan flowResult, 4)
	results <- flowResult{step: "create_collectible", latency: time.Millisecond}
	results <- flowResult{step: "create_collectible", err: assert.AnError}
	results <- flowResult{step: "buy_token", latency: 2 * time.Millisecond}
	results <- flowResult{step: "claim_token", latency: time.Millisecond}
	close(results)

	stats := collectStats(results)
	require.Len(t, stats, 4)

	byName := make(map[string]*StepStats)
	for _, s := range stats {
		byName[s.Name] = s
	}
	assert.Len(t, byName["create_collectible"].Latencies, 1)
	assert.Equal(t, 1, byName["create_collectible"].Failed)
	assert.Len(t, byName["buy_token"].Latencies, 1)
	assert.Empty(t, byName["approve"].Latencies)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := t.TempDir() + "/bench.json"
	saved := &BenchmarkConfig{
		LedgerURL:     "http://ledger:8080",
		MarketURL:     "http://market:8081",
		NftContractID: "nft.test",
		Marketplace:   "market.test",
	}
	require.NoError(t, SaveConfig(path, saved))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}
