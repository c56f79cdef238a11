package www

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/angas/solarquote-go/config"
	"github.com/angas/solarquote-go/database"
	"github.com/angas/solarquote-go/metrics"
	"github.com/angas/solarquote-go/quote"
)

// Calculator is the quote engine as seen from the web.
type Calculator interface {
	Calculate(profile quote.ProfileInput, financing quote.FinancingTerms) (quote.Quote, error)
}

// Store is the part of the database the web pages read.
type Store interface {
	Ping(ctx context.Context) error
	GetLogEntries(ctx context.Context, f database.LogFilter, page, pageSize int) ([]database.LogEntryRow, error)
	CountLogEntries(ctx context.Context, f database.LogFilter) (int, error)
}

type Server struct {
	logger   *slog.Logger
	config   config.AppConfigApi
	calc     Calculator
	db       Store
	metrics  *metrics.Quotes
	hub      *Hub
	tm       *TemplateManager
	sessions sessions.Store
	limiter  *RateLimiter
	mux      *http.ServeMux
}

//go:embed static
var embeddedStaticDir embed.FS

type ctxKey int

const requestIdKey ctxKey = iota

// NewServer sets up the routes. m may be nil, /metrics is then not served.
func NewServer(calc Calculator, db Store, m *metrics.Quotes, config config.AppConfigApi, version string) (*Server, error) {
	logger := slog.Default().With("module", "www")
	tm, err := NewTemplateManager(logger, config.WwwDir)
	if err != nil {
		return nil, fmt.Errorf("template manager initialization error: %w", err)
	}

	store, err := newSessionStore(config.SessionKey)
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:   logger,
		config:   config,
		calc:     calc,
		db:       db,
		metrics:  m,
		hub:      NewHub(logger.With(slog.String("handler", "ws"))),
		tm:       tm,
		sessions: store,
		limiter:  NewRateLimiter(config.GetRateLimit(), config.GetRateBurst()),
		mux:      http.NewServeMux(),
	}
	if m != nil {
		s.hub.OnCount = m.SetClients
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			s.logger.Debug("http request",
				slog.String("id", id),
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIdKey, id)))
		})
	}
	limited := func(next http.Handler) http.Handler {
		return logReqMW(s.limiter.Middleware(next))
	}

	s.mux.Handle("GET /static/", http.StripPrefix("/static/", staticFilesHandler(config.WwwDir)))

	s.mux.Handle("GET /{$}", logReqMW(NewIndexHandler(
		logger.With(slog.String("handler", "index")),
		s.sessions,
		s.tm)))

	s.mux.Handle("POST /quote", limited(NewQuoteHandler(
		logger.With(slog.String("handler", "quote")),
		s.calc,
		s.sessions,
		s.tm)))

	s.mux.Handle("GET /chart", limited(NewChartHandler(
		logger.With(slog.String("handler", "chart")),
		s.calc)))

	s.mux.Handle("GET /log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		s.db,
		s.tm)))

	s.mux.Handle("GET /healthz", NewHealthHandler(s.db, SysInfo{Version: version, Started: time.Now()}))

	if m != nil {
		s.mux.Handle("GET /metrics", m.Handler())
	}

	s.mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.register(client)
		go client.WritePump()
		go client.ReadPump(s.answerQuote)
	})

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// NotifyReload tells every connected page that quotes are now calculated with cfg.
func (s *Server) NotifyReload(cfg quote.Config) {
	buf, err := s.tm.Execute("config_reloaded.html", cfg)
	if err != nil {
		s.logger.Error("template execution failed", slog.Any("error", err))
		return
	}
	s.hub.Send(buf.Bytes())
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	s.logger.Info("starting server...", slog.String("address", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	defer func() {
		s.hub.Stop()
		s.limiter.Stop()
	}()

	select {
	case err := <-srvErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.Any("error", err))
		}

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", slog.Any("error", err))
		}
	}
}

func requestId(ctx context.Context) string {
	id, _ := ctx.Value(requestIdKey).(string)
	return id
}

func staticFilesHandler(extDir *string) http.Handler {
	if extDir != nil && *extDir != "" {
		staticDir := path.Join(*extDir, "static")
		if _, err := os.Stat(staticDir); err == nil {
			return http.FileServer(http.Dir(staticDir))
		}
	}

	fsys, err := fs.Sub(embeddedStaticDir, "static")
	if err != nil {
		log.Panic(err)
	}
	return http.FileServer(http.FS(fsys))
}
