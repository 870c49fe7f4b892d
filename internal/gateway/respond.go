package gateway

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/AnriTapel/logitrades/internal/account"
	"github.com/AnriTapel/logitrades/internal/domain"
	"github.com/AnriTapel/logitrades/internal/tradeimport"
)

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	render.Status(r, code)
	render.JSON(w, r, v)
}

// writeDetail wraps detail in the {"detail": ...} envelope the frontend reads.
func writeDetail(w http.ResponseWriter, r *http.Request, code int, detail any) {
	writeJSON(w, r, code, map[string]any{"detail": detail})
}

// writeServiceError maps a service error to its response. Anything unknown is
// logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		importErr *tradeimport.ImportError
		fieldErr  *tradeimport.FieldError
		ruleErr   *domain.BusinessError
		reqErr    *account.ValidationError
		accErr    *account.Error
	)
	switch {
	case errors.As(err, &importErr):
		writeDetail(w, r, http.StatusBadRequest, importErr.Error())
	case errors.As(err, &fieldErr):
		writeDetail(w, r, http.StatusUnprocessableEntity, map[string]string{
			string(fieldErr.Field): fieldErr.Message(),
		})
	case errors.As(err, &ruleErr):
		writeDetail(w, r, http.StatusBadRequest, ruleErr.Message)
	case errors.As(err, &reqErr):
		writeDetail(w, r, http.StatusUnprocessableEntity, reqErr.Fields)
	case errors.As(err, &accErr):
		writeDetail(w, r, accountStatus(accErr.Kind), accErr.Message)
	case errors.Is(err, domain.ErrNotFound):
		writeDetail(w, r, http.StatusNotFound, "Trade not found")
	case errors.Is(err, domain.ErrImportInProgress):
		writeDetail(w, r, http.StatusConflict, "An import is already running for this account")
	case errors.Is(err, domain.ErrConflict):
		writeDetail(w, r, http.StatusConflict, "Conflict")
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeDetail(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

func accountStatus(k account.Kind) int {
	switch k {
	case account.KindUnauthorized:
		return http.StatusUnauthorized
	case account.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
