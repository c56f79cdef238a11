package quote

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Engine serves calculations from the current configuration snapshot. Reload swaps the
// snapshot, calculations already running keep the one they started with.
type Engine struct {
	config atomic.Pointer[Config]
	logger *slog.Logger

	// Called after every calculation with its outcome, see Outcome.
	OnQuote func(outcome string, elapsed time.Duration)
	// Called after a new configuration has been put in place.
	OnReload func(cfg Config)
}

func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{logger: logger}
	c := cfg.clone()
	e.config.Store(&c)
	return e, nil
}

// Config returns a copy of the configuration in use.
func (e *Engine) Config() Config {
	return e.config.Load().clone()
}

// Reload validates cfg and makes it the configuration of all new calculations.
// The old configuration stays in place when cfg is invalid.
func (e *Engine) Reload(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		e.logger.Error("rejected new quote configuration", slog.Any("error", err))
		return err
	}
	c := cfg.clone()
	e.config.Store(&c)
	e.logger.Info("quote configuration reloaded",
		slog.String("sizing", c.Sizing.Name()),
		slog.String("pricing", c.Pricing.Name),
		slog.Int("years", c.Projection.Years))

	if e.OnReload != nil {
		e.OnReload(c)
	}
	return nil
}

func (e *Engine) Calculate(profile ProfileInput, financing FinancingTerms) (Quote, error) {
	start := time.Now()
	q, err := Calculate(profile, financing, *e.config.Load())
	elapsed := time.Since(start)
	outcome := Outcome(q, err)

	switch {
	case err != nil && IsInputError(err):
		e.logger.Warn("quote rejected", slog.String("outcome", outcome), slog.Any("error", err))
	case err != nil:
		e.logger.Error("quote failed", slog.String("outcome", outcome), slog.Any("error", err))
	default:
		if cerr := checkQuote(q); cerr != nil {
			e.logger.Error("quote breaks an invariant", slog.Any("error", cerr))
			err = fmt.Errorf("quote breaks an invariant: %w", cerr)
			outcome = CodeInternal
			q = Quote{}
		} else {
			e.logger.Debug("quote calculated",
				slog.String("outcome", outcome),
				slog.Float64("solarKW", q.Sizing.SolarKW),
				slog.Float64("netInvestment", q.Cost.NetInvestment),
				slog.Duration("elapsed", elapsed))
		}
	}

	if e.OnQuote != nil {
		e.OnQuote(outcome, elapsed)
	}
	return q, err
}
