package tradeimport

import (
	"strconv"
	"strings"
	"time"
)

type Coercer struct {
	now func() time.Time
}

func NewCoercer() *Coercer {
	return &Coercer{now: time.Now}
}

// Coerce reads the mapped cells of row. Unmapped or blank optional cells come
// back nil; only a missing column or an unparseable number fails.
func (c *Coercer) Coerce(row RawRow, mapping FieldMapping) (TradeCandidate, error) {
	var cand TradeCandidate

	cells := make(map[Field]string, len(Fields))
	for _, f := range Fields {
		col, ok := mapping.Column(f)
		if !ok {
			continue
		}
		v, ok := row[col]
		if !ok {
			return TradeCandidate{}, missingColumn(f, col)
		}
		cells[f] = v
	}

	if v, ok := cells[FieldSymbol]; ok {
		cand.Symbol = &v
	}
	if v, ok := cells[FieldTradeType]; ok && strings.TrimSpace(v) != "" {
		lower := strings.ToLower(strings.TrimSpace(v))
		cand.TradeType = &lower
	}

	var err error
	floats := []struct {
		field Field
		dst   **float64
	}{
		{FieldOpenPrice, &cand.OpenPrice},
		{FieldQuantity, &cand.Quantity},
		{FieldTakeProfit, &cand.TakeProfit},
		{FieldStopLoss, &cand.StopLoss},
		{FieldClosePrice, &cand.ClosePrice},
	}
	for _, fl := range floats {
		if *fl.dst, err = coerceFloat(fl.field, mapping, cells); err != nil {
			return TradeCandidate{}, err
		}
	}

	if v := blankToNil(cells[FieldLeverage]); v != nil {
		n, perr := strconv.ParseInt(*v, 10, 32)
		if perr != nil {
			col, _ := mapping.Column(FieldLeverage)
			return TradeCandidate{}, badCell(FieldLeverage, col, CodeIntParsing)
		}
		lev := int(n)
		cand.Leverage = &lev
	}

	cand.ClosedAt = blankToNil(cells[FieldClosedAt])
	cand.CreatedAt = blankToNil(cells[FieldCreatedAt])

	if _, mapped := mapping.Column(FieldOpenedAt); mapped {
		cand.OpenedAt = blankToNil(cells[FieldOpenedAt])
	} else {
		opened, err := c.syntheticOpenedAt(cand.ClosedAt, mapping)
		if err != nil {
			return TradeCandidate{}, err
		}
		cand.OpenedAt = &opened
	}

	return cand, nil
}

// syntheticOpenedAt fills opened_at for files that do not carry it: one
// calendar day before closed_at when known, otherwise the current time.
func (c *Coercer) syntheticOpenedAt(closedAt *string, mapping FieldMapping) (string, error) {
	if closedAt == nil {
		return c.now().UTC().Format(time.RFC3339Nano), nil
	}
	closed, ok := ParseDateTime(*closedAt)
	if !ok {
		col, _ := mapping.Column(FieldClosedAt)
		return "", badCell(FieldClosedAt, col, CodeDateTimeParsing)
	}
	return closed.AddDate(0, 0, -1).Format(time.RFC3339Nano), nil
}

func coerceFloat(f Field, mapping FieldMapping, cells map[Field]string) (*float64, error) {
	v := blankToNil(cells[f])
	if v == nil {
		return nil, nil
	}
	n, err := strconv.ParseFloat(*v, 64)
	if err != nil {
		col, _ := mapping.Column(f)
		return nil, badCell(f, col, CodeFloatParsing)
	}
	return &n, nil
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
