package mqttapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angas/solarquote-go/quote"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	engine, err := quote.NewEngine(quote.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return &Service{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		calc:          engine,
		requestTopic:  "solarquote/request",
		responseTopic: "solarquote/response",
	}
}

func decode(t *testing.T, payload []byte) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(payload, &resp))
	return resp
}

func TestHandleQuote(t *testing.T) {
	s := newTestService(t)

	topic, payload := s.handle([]byte(`{
		"id": "req-1",
		"profile": {"monthly_usage_kwh": 19000, "monthly_bill": 3100},
		"financing": {"mode": "loan", "interest_rate": 0.05, "term_years": 7, "grant_fraction": 0.3, "is_business": true}
	}`))

	assert.Equal(t, "solarquote/response", topic)
	resp := decode(t, payload)
	assert.Equal(t, "req-1", resp.Id)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Quote)
	assert.InDelta(t, 91.2, resp.Quote.Sizing.SolarKW, 1e-9)
	assert.InDelta(t, 71341.2, resp.Quote.Cost.NetInvestment, 1e-6)
	assert.True(t, resp.Quote.Payback.IsValid())
	assert.Empty(t, resp.Warnings)
}

func TestHandleReplyToAndGeneratedId(t *testing.T) {
	s := newTestService(t)

	topic, payload := s.handle([]byte(`{
		"reply_to": "client/42/quote",
		"profile": {"monthly_bill": 120},
		"financing": {"mode": "equity"}
	}`))

	assert.Equal(t, "client/42/quote", topic)
	resp := decode(t, payload)
	assert.Len(t, resp.Id, 36)
	require.NotNil(t, resp.Quote)
	assert.True(t, resp.Quote.Profile.UsageDerived)
}

func TestHandleErrors(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name    string
		payload string
		code    string
	}{
		{"not json", `quote please`, CodeInvalidRequest},
		{"unknown mode", `{"financing": {"mode": "lease"}}`, quote.CodeInvalidFinancingTerm},
		{"no usage or bill", `{"id": "x", "financing": {"mode": "equity"}}`, quote.CodeInsufficientInput},
		{"zero term loan", `{"profile": {"monthly_bill": 100}, "financing": {"mode": "loan"}}`, quote.CodeInvalidFinancingTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, payload := s.handle([]byte(tt.payload))
			resp := decode(t, payload)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Nil(t, resp.Quote)
			assert.NotEmpty(t, resp.Id)
		})
	}
}
