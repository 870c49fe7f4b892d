package domain

import (
	"time"

	"github.com/google/uuid"
)

// TradeParams is a trade whose individual fields have already been checked.
type TradeParams struct {
	Symbol     string
	Type       TradeType
	OpenPrice  float64
	Quantity   float64
	OpenedAt   time.Time
	TakeProfit *float64
	StopLoss   *float64
	Leverage   *int
	ClosePrice *float64
	ClosedAt   *time.Time
	CreatedAt  *time.Time
}

type BusinessError struct {
	Rule    string
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

var (
	ErrBuyStopLoss = &BusinessError{
		Rule:    "stop_loss.high",
		Message: "For buy trades, stop loss must be less than open price.",
	}
	ErrSellStopLoss = &BusinessError{
		Rule:    "stop_loss.low",
		Message: "For sell trades, stop loss must be greater than open price.",
	}
	ErrBuyTakeProfit = &BusinessError{
		Rule:    "take_profit.low",
		Message: "For buy trades, take profit must be greater than open price.",
	}
	ErrSellTakeProfit = &BusinessError{
		Rule:    "take_profit.high",
		Message: "For sell trades, take profit must be less than open price.",
	}
	ErrClosedBeforeOpened = &BusinessError{
		Rule:    "closed_at.before",
		Message: "Close date must be after opened date.",
	}
	ErrCloseIncomplete = &BusinessError{
		Rule:    "close_trade.incomplete",
		Message: "Provide both price and date to close trade.",
	}
)

// NewTrade builds a trade owned by userID and refuses to return one that
// breaks a business rule. A nil CreatedAt leaves the timestamp to the store.
func NewTrade(userID uuid.UUID, p TradeParams) (*Trade, error) {
	t := &Trade{UserID: userID}
	t.assign(p)
	if p.CreatedAt != nil {
		t.CreatedAt = *p.CreatedAt
	}
	if err := ValidateTrade(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Apply replaces every editable field. Identity, owner and creation time are kept.
// On error the trade is left untouched.
func (t *Trade) Apply(p TradeParams) error {
	next := *t
	next.assign(p)
	if err := ValidateTrade(&next); err != nil {
		return err
	}
	*t = next
	return nil
}

func (t *Trade) assign(p TradeParams) {
	t.Symbol = p.Symbol
	t.Type = p.Type
	t.OpenPrice = p.OpenPrice
	t.Quantity = p.Quantity
	t.OpenedAt = p.OpenedAt
	t.TakeProfit = p.TakeProfit
	t.StopLoss = p.StopLoss
	t.Leverage = p.Leverage
	t.ClosePrice = p.ClosePrice
	t.ClosedAt = p.ClosedAt
}

func (t *Trade) IsClosed() bool {
	return t.ClosePrice != nil && t.ClosedAt != nil
}

// ValidateTrade checks the cross-field rules in a fixed order and returns the
// first one that fails.
func ValidateTrade(t *Trade) error {
	if t.StopLoss != nil {
		switch t.Type {
		case TradeBuy:
			if *t.StopLoss >= t.OpenPrice {
				return ErrBuyStopLoss
			}
		case TradeSell:
			if *t.StopLoss <= t.OpenPrice {
				return ErrSellStopLoss
			}
		}
	}

	if t.TakeProfit != nil {
		switch t.Type {
		case TradeBuy:
			if *t.TakeProfit <= t.OpenPrice {
				return ErrBuyTakeProfit
			}
		case TradeSell:
			if *t.TakeProfit >= t.OpenPrice {
				return ErrSellTakeProfit
			}
		}
	}

	if t.ClosedAt != nil && !t.ClosedAt.After(t.OpenedAt) {
		return ErrClosedBeforeOpened
	}

	if (t.ClosePrice == nil) != (t.ClosedAt == nil) {
		return ErrCloseIncomplete
	}
	return nil
}
