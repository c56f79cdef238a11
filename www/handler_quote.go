package www

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/angas/solarquote-go/quote"
)

const maxBodySize = 64 << 10

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// QuoteResponse is the JSON answer of POST /quote.
type QuoteResponse struct {
	Id       string       `json:"id"`
	Quote    *quote.Quote `json:"quote,omitempty"`
	Warnings []ErrorBody  `json:"warnings,omitempty"`
	Error    *ErrorBody   `json:"error,omitempty"`
}

// quoteView is the data of the quote.html fragment.
type quoteView struct {
	Id         string
	Quote      quote.Quote
	Warnings   []ErrorBody
	Error      *ErrorBody
	ChartQuery string
	OOB        bool // Out of band swap, for answers over the websocket
}

func errorBody(err error) *ErrorBody {
	return &ErrorBody{Code: errorCode(err), Message: err.Error()}
}

func warnings(q quote.Quote) []ErrorBody {
	var list []ErrorBody
	for _, w := range q.Warnings() {
		list = append(list, *errorBody(w))
	}
	return list
}

func statusFor(err error) int {
	if isClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func calculateForm(calc Calculator, f QuoteForm) (quote.Quote, error) {
	req, err := f.Request()
	if err != nil {
		return quote.Quote{}, err
	}
	return calc.Calculate(req.Profile, req.Financing)
}

func newQuoteView(id string, f QuoteForm, q quote.Quote, err error) quoteView {
	view := quoteView{Id: id}
	if err != nil {
		view.Error = errorBody(err)
		return view
	}
	view.Quote = q
	view.Warnings = warnings(q)
	view.ChartQuery = f.Values().Encode()
	return view
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// NewQuoteHandler answers JSON requests with a JSON quote and form posts with the
// quote.html fragment. The form is remembered in the visitor's session.
func NewQuoteHandler(logger *slog.Logger, calc Calculator, store sessions.Store, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := requestId(r.Context())
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

		if isJSON(r) {
			serveJSONQuote(w, r, logger, calc, id)
			return
		}

		if err := r.ParseForm(); err != nil {
			renderQuote(w, logger, tm, http.StatusBadRequest, quoteView{
				Id:    id,
				Error: errorBody(fmt.Errorf("%w: %w", ErrInvalidRequest, err)),
			})
			return
		}

		f, err := ParseQuoteForm(r.PostForm)
		if err != nil {
			renderQuote(w, logger, tm, http.StatusBadRequest, quoteView{Id: id, Error: errorBody(err)})
			return
		}

		if err := saveForm(store, w, r, f); err != nil {
			logger.Warn("failed to remember quote form", slog.String("id", id), slog.Any("error", err))
		}

		q, err := calculateForm(calc, f)
		status := http.StatusOK
		if err != nil {
			status = statusFor(err)
			logger.Info("quote failed", slog.String("id", id), slog.Any("error", err))
		}
		renderQuote(w, logger, tm, status, newQuoteView(id, f, q, err))
	}
}

func serveJSONQuote(w http.ResponseWriter, r *http.Request, logger *slog.Logger, calc Calculator, id string) {
	resp := QuoteResponse{Id: id}

	var req QuoteRequest
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		if !quote.IsInputError(err) {
			err = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		resp.Error = errorBody(err)
		writeJSON(w, logger, http.StatusBadRequest, resp)
		return
	}

	q, err := calc.Calculate(req.Profile, req.Financing)
	if err != nil {
		logger.Info("quote failed", slog.String("id", id), slog.Any("error", err))
		resp.Error = errorBody(err)
		writeJSON(w, logger, statusFor(err), resp)
		return
	}

	resp.Quote = &q
	resp.Warnings = warnings(q)
	writeJSON(w, logger, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		logger.Debug("failed to write response", slog.Any("error", err))
	}
}

func renderQuote(w http.ResponseWriter, logger *slog.Logger, tm *TemplateManager, status int, view quoteView) {
	buf, err := tm.Execute("quote.html", view)
	if err != nil {
		logger.Error("handling quote request", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("failed to write response", slog.Any("error", err))
	}
}

// answerQuote calculates a quote for a form sent over the websocket and answers with
// the quote.html fragment.
func (s *Server) answerQuote(c *Client, msg []byte) []byte {
	view := quoteView{OOB: true}

	if !s.limiter.Allow(c.ip) {
		view.Error = &ErrorBody{Code: "rate_limited", Message: "too many quotes, try again in a moment"}
		return s.renderFragment(view)
	}

	v, err := decodeMessage(msg)
	if err == nil {
		var f QuoteForm
		if f, err = ParseQuoteForm(v); err == nil {
			q, err := calculateForm(s.calc, f)
			view = newQuoteView("", f, q, err)
			view.OOB = true
		}
	}
	if err != nil {
		view.Error = errorBody(err)
	}
	if view.Error != nil {
		c.logger.Debug("websocket quote failed", slog.String("code", view.Error.Code))
	}
	return s.renderFragment(view)
}

func (s *Server) renderFragment(view quoteView) []byte {
	buf, err := s.tm.Execute("quote.html", view)
	if err != nil {
		s.logger.Error("template execution failed", slog.Any("error", err))
		return nil
	}
	return buf.Bytes()
}
