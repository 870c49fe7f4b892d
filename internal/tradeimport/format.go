package tradeimport

import (
	"errors"
	"fmt"

	"github.com/AnriTapel/logitrades/internal/domain"
)

func FormatRowError(row int, err error) string {
	return fmt.Sprintf("Row %d: %s", row, describe(err))
}

func describe(err error) string {
	var (
		fieldErr    *FieldError
		coerceErr   *CoercionError
		businessErr *domain.BusinessError
	)
	switch {
	case errors.As(err, &fieldErr):
		return fieldErr.Message()
	case errors.As(err, &coerceErr):
		return coerceErr.Message
	case errors.As(err, &businessErr):
		return businessErr.Message
	default:
		return "Invalid data."
	}
}
