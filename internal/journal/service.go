package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AnriTapel/logitrades/internal/domain"
	"github.com/AnriTapel/logitrades/internal/metrics"
	"github.com/AnriTapel/logitrades/internal/tradeimport"
)

type TradeStore interface {
	Create(ctx context.Context, t *domain.Trade) error
	InsertBatch(ctx context.Context, trades []*domain.Trade) error
	Update(ctx context.Context, t *domain.Trade) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Trade, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, ev domain.TradeEvent) error
}

type ImportLocker interface {
	Acquire(ctx context.Context, userID uuid.UUID) (func(), error)
}

type Service struct {
	store    TradeStore
	pipeline *tradeimport.Pipeline
	locker   ImportLocker
	events   EventPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(
	store TradeStore,
	locker ImportLocker,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    store,
		pipeline: tradeimport.NewPipeline(tradeimport.NewCoercer(), store),
		locker:   locker,
		events:   events,
		metrics:  m,
		logger:   logger,
	}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Trade, error) {
	return s.store.GetByID(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, cand tradeimport.TradeCandidate) (*domain.Trade, error) {
	params, err := tradeimport.ValidateFields(cand)
	if err != nil {
		return nil, err
	}
	trade, err := domain.NewTrade(userID, params)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, trade); err != nil {
		return nil, fmt.Errorf("save trade: %w", err)
	}

	s.metrics.TradeMutated(string(domain.EventTradeCreated))
	s.publish(ctx, userID, domain.EventTradeCreated, trade.ID)
	return trade, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, cand tradeimport.TradeCandidate) (*domain.Trade, error) {
	params, err := tradeimport.ValidateFields(cand)
	if err != nil {
		return nil, err
	}
	trade, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := trade.Apply(params); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, trade); err != nil {
		return nil, fmt.Errorf("save trade: %w", err)
	}

	s.metrics.TradeMutated(string(domain.EventTradeUpdated))
	s.publish(ctx, userID, domain.EventTradeUpdated, trade.ID)
	return trade, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.metrics.TradeMutated(string(domain.EventTradeDeleted))
	s.publish(ctx, userID, domain.EventTradeDeleted, id)
	return nil
}

// DeleteMany removes the owned trades among ids and reports how many went.
func (s *Service) DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	deleted, err := s.store.DeleteMany(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.metrics.TradeMutated(string(domain.EventTradeDeleted))
		s.publish(ctx, userID, domain.EventTradeDeleted, deleted...)
	}
	return len(deleted), nil
}

// Import runs the all-or-nothing import for one user. A second import by the
// same user while one is running fails with domain.ErrImportInProgress.
func (s *Service) Import(ctx context.Context, userID uuid.UUID, rows []tradeimport.RawRow, mapping tradeimport.FieldMapping) (int, error) {
	release, err := s.locker.Acquire(ctx, userID)
	if err != nil {
		return 0, err
	}
	defer release()

	start := time.Now()
	n, err := s.pipeline.Import(ctx, userID, rows, mapping)
	s.metrics.ObserveImport(time.Since(start).Seconds())
	if err != nil {
		var importErr *tradeimport.ImportError
		if errors.As(err, &importErr) {
			s.metrics.ImportFailed(string(importErr.Stage))
			s.logger.Info("import rejected", "user_id", userID, "row", importErr.Row, "stage", importErr.Stage)
			return 0, err
		}
		s.metrics.ImportFailed(string(tradeimport.StagePersistence))
		return 0, err
	}

	s.metrics.TradesImported(n)
	s.logger.Info("trades imported", "user_id", userID, "count", n)
	if n > 0 {
		s.publishEvent(ctx, userID, domain.TradeEvent{Kind: domain.EventTradesImported, Count: n})
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context, userID uuid.UUID, kind domain.TradeEventKind, ids ...uuid.UUID) {
	s.publishEvent(ctx, userID, domain.TradeEvent{Kind: kind, TradeIDs: ids, Count: len(ids)})
}

// publishEvent is best effort; the write it announces has already committed.
func (s *Service) publishEvent(ctx context.Context, userID uuid.UUID, ev domain.TradeEvent) {
	if s.events == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	if err := s.events.Publish(ctx, userID, ev); err != nil {
		s.logger.Warn("publish trade event failed", "user_id", userID, "kind", ev.Kind, "err", err)
	}
}
