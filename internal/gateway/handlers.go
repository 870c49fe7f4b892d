package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/AnriTapel/logitrades/internal/account"
	"github.com/AnriTapel/logitrades/internal/journal"
)

type Handlers struct {
	accounts     *account.Service
	trades       *journal.Service
	cookieSecure bool
	maxUpload    int64
	logger       *slog.Logger
}

type HandlerOptions struct {
	CookieSecure   bool
	MaxUploadBytes int64
}

func NewHandlers(accounts *account.Service, trades *journal.Service, opts HandlerOptions, logger *slog.Logger) *Handlers {
	return &Handlers{
		accounts:     accounts,
		trades:       trades,
		cookieSecure: opts.CookieSecure,
		maxUpload:    opts.MaxUploadBytes,
		logger:       logger,
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, h.logger, err)
}

// decodeBody reads a JSON payload; on failure it has already answered 400.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
