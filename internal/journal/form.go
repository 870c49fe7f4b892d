package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AnriTapel/logitrades/internal/tradeimport"
)

const fieldUseLeverage = "use_leverage"

// formKeys maps accepted JSON keys, camelCase and snake_case, to field names.
var formKeys = map[string]string{
	"symbol":      string(tradeimport.FieldSymbol),
	"tradeType":   string(tradeimport.FieldTradeType),
	"openPrice":   string(tradeimport.FieldOpenPrice),
	"quantity":    string(tradeimport.FieldQuantity),
	"openedAt":    string(tradeimport.FieldOpenedAt),
	"takeProfit":  string(tradeimport.FieldTakeProfit),
	"stopLoss":    string(tradeimport.FieldStopLoss),
	"leverage":    string(tradeimport.FieldLeverage),
	"useLeverage": fieldUseLeverage,
	"closePrice":  string(tradeimport.FieldClosePrice),
	"closedAt":    string(tradeimport.FieldClosedAt),
	"createdAt":   string(tradeimport.FieldCreatedAt),
}

func init() {
	for _, f := range tradeimport.Fields {
		formKeys[string(f)] = string(f)
	}
	formKeys[fieldUseLeverage] = fieldUseLeverage
}

// DecodeTradeForm reads a single-trade JSON body into a candidate. Numbers may
// arrive as JSON numbers or numeric strings. A value of the wrong shape yields
// a *tradeimport.FieldError for that field. Unknown keys are ignored.
func DecodeTradeForm(body []byte) (tradeimport.TradeCandidate, error) {
	var cand tradeimport.TradeCandidate

	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return cand, fmt.Errorf("decode trade form: %w", err)
	}
	values := make(map[string]json.RawMessage, len(raw))
	for key, v := range raw {
		if name, ok := formKeys[key]; ok {
			values[name] = v
		}
	}

	var err error
	text := func(f tradeimport.Field) *string {
		if err != nil {
			return nil
		}
		var s *string
		s, err = formText(f, values[string(f)])
		return s
	}
	number := func(f tradeimport.Field) *float64 {
		if err != nil {
			return nil
		}
		var n *float64
		n, err = formFloat(f, values[string(f)])
		return n
	}

	cand.Symbol = text(tradeimport.FieldSymbol)
	cand.TradeType = text(tradeimport.FieldTradeType)
	if cand.TradeType != nil {
		lower := strings.ToLower(strings.TrimSpace(*cand.TradeType))
		cand.TradeType = &lower
	}
	cand.OpenPrice = number(tradeimport.FieldOpenPrice)
	cand.Quantity = number(tradeimport.FieldQuantity)
	cand.OpenedAt = text(tradeimport.FieldOpenedAt)
	cand.TakeProfit = number(tradeimport.FieldTakeProfit)
	cand.StopLoss = number(tradeimport.FieldStopLoss)
	if err == nil {
		cand.Leverage, err = formInt(tradeimport.FieldLeverage, values[string(tradeimport.FieldLeverage)])
	}
	cand.ClosePrice = number(tradeimport.FieldClosePrice)
	cand.ClosedAt = text(tradeimport.FieldClosedAt)
	cand.CreatedAt = text(tradeimport.FieldCreatedAt)
	if err != nil {
		return tradeimport.TradeCandidate{}, err
	}

	if use, ok := values[fieldUseLeverage]; ok {
		var on *bool
		if jerr := json.Unmarshal(use, &on); jerr == nil && on != nil && !*on {
			cand.Leverage = nil
		}
	}
	return cand, nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}

func formText(f tradeimport.Field, v json.RawMessage) (*string, error) {
	if isNull(v) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		code := tradeimport.CodeStringType
		if f == tradeimport.FieldOpenedAt || f == tradeimport.FieldClosedAt || f == tradeimport.FieldCreatedAt {
			code = tradeimport.CodeDateTimeType
		}
		return nil, &tradeimport.FieldError{Field: f, Code: code}
	}
	if f != tradeimport.FieldSymbol && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return &s, nil
}

func numberText(v json.RawMessage) (string, bool) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	return "", false
}

func formFloat(f tradeimport.Field, v json.RawMessage) (*float64, error) {
	if isNull(v) {
		return nil, nil
	}
	s, ok := numberText(v)
	if !ok {
		return nil, &tradeimport.FieldError{Field: f, Code: tradeimport.CodeFloatType}
	}
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &tradeimport.FieldError{Field: f, Code: tradeimport.CodeFloatParsing}
	}
	return &n, nil
}

// formInt accepts whole numbers only; 2.0 is allowed, 2.5 is not.
func formInt(f tradeimport.Field, v json.RawMessage) (*int, error) {
	if isNull(v) {
		return nil, nil
	}
	s, ok := numberText(v)
	if !ok {
		return nil, &tradeimport.FieldError{Field: f, Code: tradeimport.CodeIntType}
	}
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		out := int(n)
		return &out, nil
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil || fl != math.Trunc(fl) || math.Abs(fl) > math.MaxInt32 {
		return nil, &tradeimport.FieldError{Field: f, Code: tradeimport.CodeIntParsing}
	}
	n := int(fl)
	return &n, nil
}
