package tradeimport

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/AnriTapel/logitrades/internal/domain"
)

const maxSymbolLen = 16

// ValidateFields checks each field of c on its own, in the order of Fields,
// and stops at the first failure.
func ValidateFields(c TradeCandidate) (domain.TradeParams, error) {
	var p domain.TradeParams

	if c.Symbol == nil {
		return p, &FieldError{Field: FieldSymbol, Code: CodeMissing}
	}
	symbol := strings.TrimSpace(*c.Symbol)
	switch {
	case symbol == "":
		return p, &FieldError{Field: FieldSymbol, Code: CodeSymbolEmpty}
	case utf8.RuneCountInString(symbol) > maxSymbolLen:
		return p, &FieldError{Field: FieldSymbol, Code: CodeSymbolTooLong}
	case !printable(symbol):
		return p, &FieldError{Field: FieldSymbol, Code: CodeSymbolNotPrintable}
	}
	p.Symbol = strings.ToUpper(symbol)

	if c.TradeType == nil {
		return p, &FieldError{Field: FieldTradeType, Code: CodeMissing}
	}
	switch tt := domain.TradeType(strings.ToLower(strings.TrimSpace(*c.TradeType))); tt {
	case domain.TradeBuy, domain.TradeSell:
		p.Type = tt
	default:
		return p, &FieldError{Field: FieldTradeType, Code: CodeEnum}
	}

	var err error
	if p.OpenPrice, err = requirePositive(FieldOpenPrice, c.OpenPrice, CodeOpenPriceNotPositive); err != nil {
		return p, err
	}
	if p.Quantity, err = requirePositive(FieldQuantity, c.Quantity, CodeQuantityNotPositive); err != nil {
		return p, err
	}

	if c.OpenedAt == nil {
		return p, &FieldError{Field: FieldOpenedAt, Code: CodeMissing}
	}
	opened, ok := ParseDateTime(*c.OpenedAt)
	if !ok {
		return p, &FieldError{Field: FieldOpenedAt, Code: CodeDateTimeParsing}
	}
	p.OpenedAt = opened

	if p.TakeProfit, err = optionalFinite(FieldTakeProfit, c.TakeProfit); err != nil {
		return p, err
	}
	if p.StopLoss, err = optionalFinite(FieldStopLoss, c.StopLoss); err != nil {
		return p, err
	}

	if c.Leverage != nil {
		if *c.Leverage <= 0 {
			return p, &FieldError{Field: FieldLeverage, Code: CodeLeverageNotPositive}
		}
		lev := *c.Leverage
		p.Leverage = &lev
	}

	if p.ClosePrice, err = optionalFinite(FieldClosePrice, c.ClosePrice); err != nil {
		return p, err
	}
	if p.ClosedAt, err = optionalDateTime(FieldClosedAt, c.ClosedAt); err != nil {
		return p, err
	}
	if p.CreatedAt, err = optionalDateTime(FieldCreatedAt, c.CreatedAt); err != nil {
		return p, err
	}

	return p, nil
}

func printable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func requirePositive(f Field, v *float64, notPositive string) (float64, error) {
	if v == nil {
		return 0, &FieldError{Field: f, Code: CodeMissing}
	}
	if !finite(*v) {
		return 0, &FieldError{Field: f, Code: CodeFloatParsing}
	}
	if *v <= 0 {
		return 0, &FieldError{Field: f, Code: notPositive}
	}
	return *v, nil
}

func optionalFinite(f Field, v *float64) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	if !finite(*v) {
		return nil, &FieldError{Field: f, Code: CodeFloatParsing}
	}
	out := *v
	return &out, nil
}

func optionalDateTime(f Field, v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, ok := ParseDateTime(*v)
	if !ok {
		return nil, &FieldError{Field: f, Code: CodeDateTimeParsing}
	}
	return &t, nil
}
