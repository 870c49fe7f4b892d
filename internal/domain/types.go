package domain

import (
	"time"

	"github.com/google/uuid"
)

type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

type TokenKind string

const (
	TokenEmailVerification TokenKind = "email_verification"
	TokenPasswordReset     TokenKind = "password_reset"
)

type TradeEventKind string

const (
	EventTradeCreated   TradeEventKind = "created"
	EventTradeUpdated   TradeEventKind = "updated"
	EventTradeDeleted   TradeEventKind = "deleted"
	EventTradesImported TradeEventKind = "imported"
)

type User struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Username     string    `db:"username"      json:"username"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActive     bool      `db:"is_active"     json:"is_active"`
	IsVerified   bool      `db:"is_verified"   json:"is_verified"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

type Trade struct {
	ID         uuid.UUID  `db:"id"          json:"id"`
	UserID     uuid.UUID  `db:"user_id"     json:"-"`
	Symbol     string     `db:"symbol"      json:"symbol"`
	Type       TradeType  `db:"type"        json:"type"`
	OpenPrice  float64    `db:"open_price"  json:"open_price"`
	Quantity   float64    `db:"quantity"    json:"quantity"`
	OpenedAt   time.Time  `db:"opened_at"   json:"opened_at"`
	TakeProfit *float64   `db:"take_profit" json:"take_profit"`
	StopLoss   *float64   `db:"stop_loss"   json:"stop_loss"`
	Leverage   *int       `db:"leverage"    json:"leverage"`
	ClosePrice *float64   `db:"close_price" json:"close_price"`
	ClosedAt   *time.Time `db:"closed_at"   json:"closed_at"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"  json:"updated_at"`
}

type RefreshToken struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	Token     string    `db:"token"      json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Revoked   bool      `db:"revoked"    json:"revoked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type OneTimeToken struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	Kind      TokenKind `db:"kind"       json:"kind"`
	Token     string    `db:"token"      json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Used      bool      `db:"used"       json:"used"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type TradeEvent struct {
	Kind      TradeEventKind `json:"kind"`
	TradeIDs  []uuid.UUID    `json:"trade_ids,omitempty"`
	Count     int            `json:"count"`
	Timestamp time.Time      `json:"timestamp"`
}
