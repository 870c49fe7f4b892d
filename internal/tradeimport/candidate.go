package tradeimport

// TradeCandidate holds typed but unvalidated trade values. Nil means absent.
type TradeCandidate struct {
	Symbol     *string
	TradeType  *string
	OpenPrice  *float64
	Quantity   *float64
	OpenedAt   *string
	TakeProfit *float64
	StopLoss   *float64
	Leverage   *int
	ClosePrice *float64
	ClosedAt   *string
	CreatedAt  *string
}
