package www

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

// NewIndexHandler shows the quote form, filled in with what the visitor used last time.
func NewIndexHandler(logger *slog.Logger, store sessions.Store, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := struct {
			Form QuoteForm
		}{
			Form: loadForm(store, r),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tm.ExecuteToWriter("index.html", data, w); err != nil {
			logger.Error("handling index request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
