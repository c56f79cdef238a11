package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angas/solarquote-go/config"
	"github.com/angas/solarquote-go/quote"
)

func TestApplyReload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := quote.NewEngine(quote.DefaultConfig(), logger)
	require.NoError(t, err)

	cnfg, err := config.Load("config/config.yaml")
	require.NoError(t, err)

	cnfg.Quote.Pricing.Table = "promo"
	require.NoError(t, applyReload(logger, engine, reload{cnfg: cnfg}))
	assert.Equal(t, "promo", engine.Config().Pricing.Name)

	cnfg.Quote.Pricing.Table = "missing"
	assert.ErrorIs(t, applyReload(logger, engine, reload{cnfg: cnfg}), quote.ErrInvalidConfig)
	assert.Equal(t, "promo", engine.Config().Pricing.Name)

	assert.Error(t, applyReload(logger, engine, reload{err: assert.AnError}))
}
