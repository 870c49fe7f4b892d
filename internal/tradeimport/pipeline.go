package tradeimport

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AnriTapel/logitrades/internal/domain"
)

type TradeWriter interface {
	InsertBatch(ctx context.Context, trades []*domain.Trade) error
}

type Pipeline struct {
	coercer *Coercer
	writer  TradeWriter
}

func NewPipeline(coercer *Coercer, writer TradeWriter) *Pipeline {
	return &Pipeline{coercer: coercer, writer: writer}
}

// Import validates every row and, only if all pass, writes them in one batch.
// A failing row yields an *ImportError and nothing is written.
func (p *Pipeline) Import(ctx context.Context, userID uuid.UUID, rows []RawRow, mapping FieldMapping) (int, error) {
	trades, err := p.Stage(userID, rows, mapping)
	if err != nil {
		return 0, err
	}
	if len(trades) == 0 {
		return 0, nil
	}
	if err := p.writer.InsertBatch(ctx, trades); err != nil {
		return 0, fmt.Errorf("persist imported trades: %w", err)
	}
	return len(trades), nil
}

// Stage runs coercion and both validation passes over rows without writing.
// Rows are numbered from 1; evaluation stops at the first failure.
func (p *Pipeline) Stage(userID uuid.UUID, rows []RawRow, mapping FieldMapping) ([]*domain.Trade, error) {
	trades := make([]*domain.Trade, 0, len(rows))
	for i, row := range rows {
		n := i + 1

		cand, err := p.coercer.Coerce(row, mapping)
		if err != nil {
			return nil, &ImportError{Row: n, Stage: StageCoercion, Err: err}
		}

		params, err := ValidateFields(cand)
		if err != nil {
			return nil, &ImportError{Row: n, Stage: StageField, Err: err}
		}

		trade, err := domain.NewTrade(userID, params)
		if err != nil {
			return nil, &ImportError{Row: n, Stage: StageBusiness, Err: err}
		}
		trades = append(trades, trade)
	}
	return trades, nil
}
