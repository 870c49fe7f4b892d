package tradeimport

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	CodeMissing          = "missing"
	CodeStringType       = "string_type"
	CodeEnum             = "enum"
	CodeFloatParsing     = "float_parsing"
	CodeFloatType        = "float_type"
	CodeIntParsing       = "int_parsing"
	CodeIntType          = "int_type"
	CodeGreaterThan      = "greater_than"
	CodeDateTimeParsing  = "datetime_parsing"
	CodeDateTimeType     = "datetime_type"
	CodeDateFromDateTime = "datetime_from_date_parsing"

	CodeSymbolEmpty          = "symbol.empty"
	CodeSymbolTooLong        = "symbol.too_long"
	CodeSymbolNotPrintable   = "symbol.not_printable"
	CodeOpenPriceNotPositive = "open_price.not_positive"
	CodeQuantityNotPositive  = "quantity.not_positive"
	CodeLeverageNotPositive  = "leverage.not_positive"
)

func dateTimeMessages(msg string) map[string]string {
	return map[string]string{
		CodeDateTimeParsing:  msg,
		CodeDateTimeType:     msg,
		CodeDateFromDateTime: msg,
	}
}

func numberMessages(msg string) map[string]string {
	return map[string]string{
		CodeFloatParsing: msg,
		CodeFloatType:    msg,
	}
}

var fieldMessages = map[Field]map[string]string{
	FieldSymbol: {
		CodeMissing:       "Symbol is required.",
		CodeSymbolEmpty:   "Symbol is required.",
		CodeStringType:    "Symbol must be text.",
		CodeSymbolTooLong: "Symbol must be 16 characters or less.",
	},
	FieldTradeType: {
		CodeEnum:    "Trade type must be 'buy' or 'sell'.",
		CodeMissing: "Trade type is required.",
	},
	FieldOpenPrice: {
		CodeFloatParsing:         "Open price must be a valid number.",
		CodeFloatType:            "Open price must be a valid number.",
		CodeGreaterThan:          "Open price must be greater than 0.",
		CodeOpenPriceNotPositive: "Open price must be greater than 0.",
		CodeMissing:              "Open price is required.",
	},
	FieldQuantity: {
		CodeFloatParsing:        "Quantity must be a valid number.",
		CodeFloatType:           "Quantity must be a valid number.",
		CodeMissing:             "Quantity is required.",
		CodeQuantityNotPositive: "Quantity must be greater than 0.",
	},
	FieldOpenedAt:   dateTimeMessages("Opened at must be a valid date/time."),
	FieldTakeProfit: numberMessages("Take profit must be a valid number."),
	FieldStopLoss:   numberMessages("Stop loss must be a valid number."),
	FieldLeverage: {
		CodeIntParsing:          "Leverage must be a whole number.",
		CodeIntType:             "Leverage must be a whole number.",
		CodeLeverageNotPositive: "Leverage must be greater than 0.",
	},
	FieldClosePrice: numberMessages("Close price must be a valid number."),
	FieldClosedAt:   dateTimeMessages("Closed at must be a valid date/time."),
	FieldCreatedAt:  dateTimeMessages("Created at must be a valid date/time."),
}

var defaultMessages = map[string]string{
	CodeMissing:          "This field is required.",
	CodeFloatParsing:     "Must be a valid number.",
	CodeFloatType:        "Must be a valid number.",
	CodeIntParsing:       "Must be a whole number.",
	CodeIntType:          "Must be a whole number.",
	CodeDateTimeParsing:  "Must be a valid date/time.",
	CodeDateTimeType:     "Must be a valid date/time.",
	CodeDateFromDateTime: "Must be a valid date/time.",
	CodeStringType:       "Must be text.",
	CodeEnum:             "Invalid value.",
}

// fieldMessage resolves a field error to user text: the field's own table,
// then the generic table, then a message built from the field name.
func fieldMessage(f Field, code string) string {
	if msg, ok := fieldMessages[f][code]; ok {
		return msg
	}
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return humanize(f) + " has an invalid value."
}

func humanize(f Field) string {
	words := strings.Fields(strings.ReplaceAll(string(f), "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
