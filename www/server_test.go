package www

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angas/solarquote-go/config"
	"github.com/angas/solarquote-go/database"
	"github.com/angas/solarquote-go/metrics"
	"github.com/angas/solarquote-go/quote"
	"github.com/angas/solarquote-go/www/chartjs"
)

type fakeStore struct {
	err     error
	entries []database.LogEntryRow
	filter  database.LogFilter
}

func (s *fakeStore) Ping(context.Context) error { return s.err }

func (s *fakeStore) GetLogEntries(_ context.Context, f database.LogFilter, page, pageSize int) ([]database.LogEntryRow, error) {
	s.filter = f
	return s.entries, s.err
}

func (s *fakeStore) CountLogEntries(context.Context, database.LogFilter) (int, error) {
	return len(s.entries) + 10, s.err
}

const largeBusinessJSON = `{
	"profile": {"monthly_usage_kwh": 19000, "monthly_bill": 3100},
	"financing": {"mode": "loan", "interest_rate": 0.05, "term_years": 7, "grant_fraction": 0.3, "is_business": true}
}`

var largeBusinessForm = url.Values{
	"monthly_usage": {"19000"},
	"monthly_bill":  {"3100"},
	"mode":          {"loan"},
	"interest_rate": {"5"},
	"term_years":    {"7"},
	"grant":         {"30"},
	"business":      {"on"},
}

func newTestServer(t *testing.T, store Store, api config.AppConfigApi) (*Server, *metrics.Quotes) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine, err := quote.NewEngine(quote.DefaultConfig(), logger)
	require.NoError(t, err)
	m, err := metrics.NewQuotes(nil)
	require.NoError(t, err)
	engine.OnQuote = m.ObserveQuote

	if api.SessionKey == nil {
		key := "0123456789abcdef0123456789abcdef"
		api.SessionKey = &key
	}
	s, err := NewServer(engine, store, m, api, "1.2.3")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.hub.Stop()
		s.limiter.Stop()
	})
	return s, m
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestQuoteJSON(t *testing.T) {
	s, _ := newTestServer(t, &fakeStore{}, config.AppConfigApi{})

	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(largeBusinessJSON))
	req.Header.Set("Content-Type", "application/json")
	w := serve(s, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var resp QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Quote)
	assert.Equal(t, w.Header().Get("X-Request-Id"), resp.Id)
	assert.InDelta(t, 91.2, resp.Quote.Sizing.SolarKW, 1e-9)
	assert.InDelta(t, 71341.2, resp.Quote.Cost.NetInvestment, 1e-6)
	assert.Nil(t, resp.Error)
	assert.Empty(t, resp.Warnings)
}

func TestQuoteJSONErrors(t *testing.T) {
	s, _ := newTestServer(t, &fakeStore{}, config.AppConfigApi{})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"no usage or bill", `{"financing": {"mode": "equity"}}`, http.StatusBadRequest, quote.CodeInsufficientInput},
		{"zero term", `{"profile": {"monthly_bill": 100}, "financing": {"mode": "loan", "term_years": 0}}`, http.StatusBadRequest, quote.CodeInvalidFinancingTerm},
		{"not json", `{"profile": `, http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			w := serve(s, req)

			assert.Equal(t, tt.status, w.Code)
			var resp QuoteResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Nil(t, resp.Quote)
		})
	}
}

func TestQuoteFormRemembersVisitor(t *testing.T) {
	s, _ := newTestServer(t, &fakeStore{}, config.AppConfigApi{})

	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(largeBusinessForm.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(s, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, "91.2 kW")
	assert.Contains(t, body, "71341.20")
	assert.Contains(t, body, `data-src="/chart?`)
	assert.NotContains(t, body, "hx-swap-oob")

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = serve(s, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="monthly_usage" min="0" step="any" value="19000"`)
	assert.Contains(t, w.Body.String(), `name="business" checked`)
}

func TestQuoteFormError(t *testing.T) {
	s, _ := newTestServer(t, &fakeStore{}, config.AppConfigApi{})

	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader("mode=equity"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(s, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `data-code="insufficient_input"`)
}

func TestIndexWithoutSession(t *testing.T) {
	s, _ := newTestServer(t, &fakeStore{}, config.AppConfigApi{})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="term_years" min="1" step="1" value="7"`)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChart(t *testing.T) {
	s, _ := newTestServer(t, &fakeStore{}, config.AppConfigApi{})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/chart?"+largeBusinessForm.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var chart chartjs.Chart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chart))
	assert.Len(t, chart.Data.Labels, 26)
	require.Len(t, chart.Data.Datasets, 2)
	assert.Equal(t, "Without system", chart.Data.Datasets[0].Label)
	assert.Equal(t, 0.0, *chart.Data.Datasets[0].Data[0])

	w = serve(s, httptest.NewRequest(http.MethodGet, "/chart?mode=loan", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	store := &fakeStore{}
	s, _ := newTestServer(t, store, config.AppConfigApi{})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var h health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "1.2.3", h.Version)
	assert.Empty(t, h.Error)

	store.err = errors.New("disk full")
	w = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "disk full")
}

func TestLog(t *testing.T) {
	store := &fakeStore{entries: []database.LogEntryRow{{
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Level:     int(slog.LevelWarn),
		Module:    "quote",
		Message:   "quote rejected",
		Attrs:     `{"code":"insufficient_input"}`,
	}}}
	s, _ := newTestServer(t, store, config.AppConfigApi{})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/log?page=1&pageSize=1&level=warn&module=quote", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, "quote rejected")
	assert.Contains(t, body, `class="level-warn"`)
	assert.Contains(t, body, "page=2", "more entries are loaded on scroll")
	assert.Equal(t, database.LogFilter{MinLevel: slog.LevelWarn, Module: "quote"}, store.filter)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/log", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hx-trigger="load"`)
}

func TestQueryInt(t *testing.T) {
	q := url.Values{"page": {" 3 "}, "pageSize": {"many"}}
	assert.Equal(t, 3, queryInt(q, "page", 0))
	assert.Equal(t, 25, queryInt(q, "pageSize", 25))
	assert.Equal(t, 7, queryInt(q, "missing", 7))
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, &fakeStore{}, config.AppConfigApi{})

	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(largeBusinessJSON))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusOK, serve(s, req).Code)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `solarquote_quotes_total{outcome="ok"} 1`)
}

func TestQuoteIsRateLimited(t *testing.T) {
	rate, burst := 0.001, 1
	s, _ := newTestServer(t, &fakeStore{}, config.AppConfigApi{RateLimit: &rate, RateBurst: &burst})

	codes := []int{}
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(largeBusinessJSON))
		req.Header.Set("Content-Type", "application/json")
		codes = append(codes, serve(s, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	// Pages are not limited
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestWebsocket(t *testing.T) {
	s, m := newTestServer(t, &fakeStore{}, config.AppConfigApi{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	fields := map[string]string{}
	for k := range largeBusinessForm {
		fields[k] = largeBusinessForm.Get(k)
	}
	require.NoError(t, conn.WriteJSON(fields))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `hx-swap-oob="true"`)
	assert.Contains(t, string(msg), "91.2 kW")

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"mode":"equity"}`)))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `data-code="insufficient_input"`)

	for _, grant := range []string{"NaN", "Inf", "-Infinity"} {
		require.NoError(t, conn.WriteJSON(map[string]string{"monthly_usage": "1000", "grant": grant}))
		_, msg, err = conn.ReadMessage()
		require.NoError(t, err, "the connection survives grant %q", grant)
		assert.Contains(t, string(msg), `data-code="invalid_request"`)
	}

	assert.Equal(t, 1, s.hub.Count())
	assert.Contains(t, scrape(t, m), "solarquote_websocket_clients 1")

	cfg := quote.DefaultConfig()
	cfg.Projection.Years = 20
	s.NotifyReload(cfg)
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "20 years")
}

func scrape(t *testing.T, m *metrics.Quotes) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}
