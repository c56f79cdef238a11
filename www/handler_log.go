package www

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/angas/solarquote-go/database"
	"github.com/angas/solarquote-go/logging"
)

const defaultLogPageSize = 25

// queryInt is the integer value of key, or def when it's missing or not a number.
func queryInt(query url.Values, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get(key)))
	if err != nil {
		return def
	}
	return n
}

func NewLogHandler(logger *slog.Logger, db Store, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		level := strings.TrimSpace(query.Get("level"))
		filter := database.LogFilter{
			MinLevel: slog.LevelDebug,
			Module:   strings.TrimSpace(query.Get("module")),
		}
		if level != "" {
			filter.MinLevel = logging.LevelFromString(&level)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		page := queryInt(query, "page", 0)
		if page < 1 {
			data := struct {
				Level  string
				Module string
			}{level, filter.Module}
			if err := tm.ExecuteToWriter("log.html", data, w); err != nil {
				logger.Error("handling log request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		pageSize := queryInt(query, "pageSize", defaultLogPageSize)
		if pageSize < 1 || pageSize > 500 {
			pageSize = defaultLogPageSize
		}

		e, err := db.GetLogEntries(r.Context(), filter, page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		total, err := db.CountLogEntries(r.Context(), filter)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data := struct {
			NextPage int
			PageSize int
			HasMore  bool
			Total    int
			Level    string
			Module   string
			Entries  []database.LogEntryRow
		}{
			NextPage: page + 1,
			PageSize: pageSize,
			HasMore:  page*pageSize < total,
			Total:    total,
			Level:    level,
			Module:   filter.Module,
			Entries:  e,
		}

		if err := tm.ExecuteToWriter("log_entries.html", data, w); err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
