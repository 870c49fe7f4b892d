package tradeimport

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Field string

const (
	FieldSymbol     Field = "symbol"
	FieldTradeType  Field = "trade_type"
	FieldOpenPrice  Field = "open_price"
	FieldQuantity   Field = "quantity"
	FieldOpenedAt   Field = "opened_at"
	FieldTakeProfit Field = "take_profit"
	FieldStopLoss   Field = "stop_loss"
	FieldLeverage   Field = "leverage"
	FieldClosePrice Field = "close_price"
	FieldClosedAt   Field = "closed_at"
	FieldCreatedAt  Field = "created_at"
)

var Fields = []Field{
	FieldSymbol,
	FieldTradeType,
	FieldOpenPrice,
	FieldQuantity,
	FieldOpenedAt,
	FieldTakeProfit,
	FieldStopLoss,
	FieldLeverage,
	FieldClosePrice,
	FieldClosedAt,
	FieldCreatedAt,
}

func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

type RawRow map[string]string

type FieldMapping map[Field]string

// Column returns the header mapped to f. Blank headers count as unmapped.
func (m FieldMapping) Column(f Field) (string, bool) {
	col, ok := m[f]
	if !ok || strings.TrimSpace(col) == "" {
		return "", false
	}
	return col, true
}

func IdentityMapping() FieldMapping {
	m := make(FieldMapping, len(Fields))
	for _, f := range Fields {
		m[f] = string(f)
	}
	return m
}

func ParseMapping(data []byte) (FieldMapping, error) {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	m := make(FieldMapping, len(raw))
	for key, col := range raw {
		f := Field(key)
		if !f.Valid() {
			return nil, fmt.Errorf("unknown mapping field %q", key)
		}
		if col == nil {
			continue
		}
		m[f] = *col
	}
	return m, nil
}
