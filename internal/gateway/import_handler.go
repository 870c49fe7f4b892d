package gateway

import (
	"errors"
	"net/http"

	"github.com/AnriTapel/logitrades/internal/auth"
	"github.com/AnriTapel/logitrades/internal/tradeimport"
)

// ImportTrades takes a multipart upload with a "file" part (CSV or XLSX) and
// a JSON "mapping" of canonical field to column header.
func (h *Handlers) ImportTrades(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, r, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeDetail(w, r, http.StatusBadRequest, "Invalid upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	raw := r.FormValue("mapping")
	if raw == "" {
		writeDetail(w, r, http.StatusBadRequest, "Column mapping is required")
		return
	}
	mapping, err := tradeimport.ParseMapping([]byte(raw))
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Invalid column mapping")
		return
	}

	rows, err := tradeimport.ReadRows(header.Filename, file)
	if err != nil && !errors.Is(err, tradeimport.ErrNoHeader) {
		h.logger.Info("unreadable import file", "filename", header.Filename, "err", err)
		writeDetail(w, r, http.StatusBadRequest, "Could not read file")
		return
	}

	n, err := h.trades.Import(r.Context(), auth.UserIDFromCtx(r.Context()), rows, mapping)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"message": "Trades imported successfully", "count": n})
}
