package quote

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Projection.Years = 0

	_, err := NewEngine(cfg, discardLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEngineReload(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), discardLogger())
	require.NoError(t, err)

	var reloaded []Config
	e.OnReload = func(cfg Config) { reloaded = append(reloaded, cfg) }

	next := DefaultConfig()
	next.Projection.Years = 20
	next.Pricing, _ = PricingPreset(PricingSplit)
	require.NoError(t, e.Reload(next))
	assert.Equal(t, 20, e.Config().Projection.Years)
	require.Len(t, reloaded, 1)

	bad := next
	bad.Technical.FallbackUnitPrice = -1
	assert.ErrorIs(t, e.Reload(bad), ErrInvalidConfig)
	assert.Equal(t, 0.16, e.Config().Technical.FallbackUnitPrice, "old config stays in place")
	assert.Len(t, reloaded, 1)

	q, err := e.Calculate(profile(1000, 0), businessLoan)
	require.NoError(t, err)
	assert.Len(t, q.Projection.Years, 21)
	assert.Equal(t, PricingSplit, q.PricingTable)
}

func TestEngineConfigIsACopy(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), discardLogger())
	require.NoError(t, err)

	c := e.Config()
	c.Pricing.Tiers[0].SolarPricePerKW = 1

	assert.Equal(t, 1100.0, e.Config().Pricing.Tiers[0].SolarPricePerKW)
}

func TestEngineReportsOutcome(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), discardLogger())
	require.NoError(t, err)

	var mu sync.Mutex
	outcomes := map[string]int{}
	e.OnQuote = func(outcome string, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[outcome]++
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Calculate(profile(19000, 3100), businessLoan)
		}()
	}
	wg.Wait()

	_, err = e.Calculate(ProfileInput{}, businessLoan)
	assert.ErrorIs(t, err, ErrInsufficientInput)

	assert.Equal(t, map[string]int{"ok": 10, CodeInsufficientInput: 1}, outcomes)
}
