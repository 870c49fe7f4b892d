package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AnriTapel/logitrades/internal/auth"
	"github.com/AnriTapel/logitrades/internal/domain"
	"github.com/AnriTapel/logitrades/internal/journal"
	"github.com/AnriTapel/logitrades/internal/tradeimport"
)

const maxTradeBody = 1 << 16

func (h *Handlers) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.List(r.Context(), auth.UserIDFromCtx(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, r, http.StatusOK, trades)
}

func (h *Handlers) GetTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeID(w, r)
	if !ok {
		return
	}
	trade, err := h.trades.Get(r.Context(), auth.UserIDFromCtx(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, trade)
}

func (h *Handlers) CreateTrade(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTradeBody))
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	cand, err := journal.DecodeTradeForm(body)
	if err != nil {
		h.formError(w, r, err)
		return
	}
	trade, err := h.trades.Create(r.Context(), auth.UserIDFromCtx(r.Context()), cand)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, trade)
}

func (h *Handlers) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTradeBody))
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	cand, err := journal.DecodeTradeForm(body)
	if err != nil {
		h.formError(w, r, err)
		return
	}
	trade, err := h.trades.Update(r.Context(), auth.UserIDFromCtx(r.Context()), id, cand)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, trade)
}

func (h *Handlers) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := tradeID(w, r)
	if !ok {
		return
	}
	if err := h.trades.Delete(r.Context(), auth.UserIDFromCtx(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Trade deleted successfully"})
}

type deleteTradesRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (h *Handlers) DeleteTrades(w http.ResponseWriter, r *http.Request) {
	var req deleteTradesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeDetail(w, r, http.StatusBadRequest, "No trade ids given")
		return
	}
	n, err := h.trades.DeleteMany(r.Context(), auth.UserIDFromCtx(r.Context()), req.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"message": "Trades deleted successfully", "count": n})
}

func (h *Handlers) ExportTrades(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	if err := h.trades.Export(r.Context(), auth.UserIDFromCtx(r.Context()), w); err != nil {
		h.logger.Error("export trades failed", "err", err)
	}
}

// formError answers a form that could not be decoded: field shape problems
// go through the usual mapping, malformed JSON is a plain 400.
func (h *Handlers) formError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *tradeimport.FieldError
	if errors.As(err, &fieldErr) {
		h.fail(w, r, err)
		return
	}
	writeDetail(w, r, http.StatusBadRequest, "Invalid request body")
}

func tradeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, r, http.StatusNotFound, "Trade not found")
		return uuid.Nil, false
	}
	return id, true
}
