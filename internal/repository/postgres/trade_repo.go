package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AnriTapel/logitrades/internal/domain"
)

type TradeRepo struct {
	db *sqlx.DB
}

func NewTradeRepo(db *sqlx.DB) *TradeRepo {
	return &TradeRepo{db: db}
}

const insertTrade = `
	INSERT INTO trades (
		id, user_id, symbol, type, open_price, quantity, opened_at,
		take_profit, stop_loss, leverage, close_price, closed_at, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, NOW()))
	RETURNING created_at, updated_at`

func (r *TradeRepo) Create(ctx context.Context, t *domain.Trade) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.CreateTx(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TradeRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, t *domain.Trade) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	var createdAt interface{}
	if !t.CreatedAt.IsZero() {
		createdAt = t.CreatedAt
	}
	err := tx.QueryRowContext(ctx, insertTrade,
		t.ID, t.UserID, t.Symbol, t.Type, t.OpenPrice, t.Quantity, t.OpenedAt,
		t.TakeProfit, t.StopLoss, t.Leverage, t.ClosePrice, t.ClosedAt, createdAt).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	return translate(err, "insert trade")
}

// InsertBatch writes all trades in a single transaction. Either every row is
// stored or none is.
func (r *TradeRepo) InsertBatch(ctx context.Context, trades []*domain.Trade) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range trades {
		if err := r.CreateTx(ctx, tx, t); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trade batch: %w", err)
	}
	return nil
}

func (r *TradeRepo) Update(ctx context.Context, t *domain.Trade) error {
	query := `
		UPDATE trades
		SET symbol = $1, type = $2, open_price = $3, quantity = $4, opened_at = $5,
			take_profit = $6, stop_loss = $7, leverage = $8, close_price = $9, closed_at = $10,
			updated_at = NOW()
		WHERE id = $11 AND user_id = $12
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		t.Symbol, t.Type, t.OpenPrice, t.Quantity, t.OpenedAt,
		t.TakeProfit, t.StopLoss, t.Leverage, t.ClosePrice, t.ClosedAt,
		t.ID, t.UserID).
		Scan(&t.UpdatedAt)
	return translate(err, "update trade")
}

func (r *TradeRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Trade, error) {
	var t domain.Trade
	err := r.db.GetContext(ctx, &t,
		`SELECT * FROM trades WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, translate(err, "get trade")
	}
	return &t, nil
}

func (r *TradeRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error) {
	trades := []domain.Trade{}
	err := r.db.SelectContext(ctx, &trades,
		`SELECT * FROM trades WHERE user_id = $1 ORDER BY opened_at DESC, created_at DESC`, userID)
	if err != nil {
		return nil, translate(err, "list trades")
	}
	return trades, nil
}

func (r *TradeRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM trades WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err, "delete trade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete trade: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteMany removes the listed trades owned by userID and returns the ids
// that were actually deleted.
func (r *TradeRepo) DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	var deleted []uuid.UUID
	err := r.db.SelectContext(ctx, &deleted,
		`DELETE FROM trades WHERE user_id = $1 AND id = ANY($2::uuid[]) RETURNING id`,
		userID, pq.Array(keys))
	if err != nil {
		return nil, translate(err, "delete trades")
	}
	return deleted, nil
}
