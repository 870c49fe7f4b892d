package journal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriTapel/logitrades/internal/domain"
	"github.com/AnriTapel/logitrades/internal/metrics"
	"github.com/AnriTapel/logitrades/internal/testutil/memstore"
	"github.com/AnriTapel/logitrades/internal/tradeimport"
)

type harness struct {
	svc    *Service
	store  *memstore.Trades
	locker *memstore.Locker
	events *memstore.Events
}

func newHarness() *harness {
	h := &harness{
		store:  memstore.NewTrades(),
		locker: memstore.NewLocker(),
		events: memstore.NewEvents(),
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h.svc = NewService(h.store, h.locker, h.events, metrics.New(prometheus.NewRegistry()), logger)
	return h
}

func mustForm(t *testing.T, body string) tradeimport.TradeCandidate {
	t.Helper()
	cand, err := DecodeTradeForm([]byte(body))
	require.NoError(t, err)
	return cand
}

const buyForm = `{
	"symbol": "aapl",
	"tradeType": "buy",
	"openPrice": 150,
	"quantity": 10,
	"openedAt": "2023-10-01T10:00:00Z",
	"takeProfit": 160,
	"stopLoss": 140,
	"useLeverage": true,
	"leverage": 2
}`

func TestCreateAndGet(t *testing.T) {
	h := newHarness()
	owner := uuid.New()
	ctx := context.Background()

	trade, err := h.svc.Create(ctx, owner, mustForm(t, buyForm))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", trade.Symbol)
	assert.Equal(t, 2, *trade.Leverage)

	got, err := h.svc.Get(ctx, owner, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.ID, got.ID)

	_, err = h.svc.Get(ctx, uuid.New(), trade.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	evs := h.events.For(owner)
	require.Len(t, evs, 1)
	assert.Equal(t, domain.EventTradeCreated, evs[0].Kind)
	assert.Equal(t, []uuid.UUID{trade.ID}, evs[0].TradeIDs)
}

func TestCreateRejects(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Create(ctx, uuid.New(), mustForm(t, `{"symbol":"A","tradeType":"buy","openPrice":0,"quantity":1,"openedAt":"2023-10-01"}`))
	var fe *tradeimport.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, tradeimport.FieldOpenPrice, fe.Field)

	_, err = h.svc.Create(ctx, uuid.New(), mustForm(t, `{"symbol":"A","tradeType":"sell","openPrice":10,"quantity":1,"openedAt":"2023-10-01","stopLoss":5}`))
	assert.ErrorIs(t, err, domain.ErrSellStopLoss)
}

func TestCreateStoreFailure(t *testing.T) {
	h := newHarness()
	h.store.FailInsert = errors.New("db down")

	_, err := h.svc.Create(context.Background(), uuid.New(), mustForm(t, buyForm))
	assert.ErrorIs(t, err, h.store.FailInsert)
}

func TestUpdate(t *testing.T) {
	h := newHarness()
	owner := uuid.New()
	ctx := context.Background()
	trade, err := h.svc.Create(ctx, owner, mustForm(t, buyForm))
	require.NoError(t, err)

	edit := mustForm(t, `{
		"symbol": "msft", "trade_type": "sell", "open_price": 300, "quantity": 1,
		"opened_at": "2023-11-01T10:00:00Z", "close_price": 290, "closed_at": "2023-11-02T10:00:00Z"
	}`)
	updated, err := h.svc.Update(ctx, owner, trade.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, trade.ID, updated.ID)
	assert.Equal(t, "MSFT", updated.Symbol)
	assert.Equal(t, trade.CreatedAt, updated.CreatedAt)
	assert.Nil(t, updated.Leverage)
	assert.True(t, updated.IsClosed())

	_, err = h.svc.Update(ctx, uuid.New(), trade.ID, edit)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bad := mustForm(t, `{"symbol":"msft","tradeType":"buy","openPrice":300,"quantity":1,"openedAt":"2023-11-01","closePrice":310}`)
	_, err = h.svc.Update(ctx, owner, trade.ID, bad)
	assert.ErrorIs(t, err, domain.ErrCloseIncomplete)

	stored, err := h.svc.Get(ctx, owner, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", stored.Symbol)
}

func TestDelete(t *testing.T) {
	h := newHarness()
	owner := uuid.New()
	ctx := context.Background()
	a, err := h.svc.Create(ctx, owner, mustForm(t, buyForm))
	require.NoError(t, err)
	b, err := h.svc.Create(ctx, owner, mustForm(t, buyForm))
	require.NoError(t, err)
	c, err := h.svc.Create(ctx, owner, mustForm(t, buyForm))
	require.NoError(t, err)

	assert.ErrorIs(t, h.svc.Delete(ctx, uuid.New(), a.ID), domain.ErrNotFound)
	require.NoError(t, h.svc.Delete(ctx, owner, a.ID))

	n, err := h.svc.DeleteMany(ctx, owner, []uuid.UUID{b.ID, c.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := h.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}

const importCSV = "Ticker,Type,Price,Qty,Opened\n" +
	"btcusdt,buy,100,1,2025-01-01T10:00:00Z\n" +
	"ethusdt,sell,50,2,2025-01-02T10:00:00Z\n"

var importMapping = tradeimport.FieldMapping{
	tradeimport.FieldSymbol:    "Ticker",
	tradeimport.FieldTradeType: "Type",
	tradeimport.FieldOpenPrice: "Price",
	tradeimport.FieldQuantity:  "Qty",
	tradeimport.FieldOpenedAt:  "Opened",
}

func readCSV(t *testing.T, body string) []tradeimport.RawRow {
	t.Helper()
	rows, err := tradeimport.ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	return rows
}

func TestImport(t *testing.T) {
	h := newHarness()
	owner := uuid.New()
	ctx := context.Background()

	n, err := h.svc.Import(ctx, owner, readCSV(t, importCSV), importMapping)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := h.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	evs := h.events.For(owner)
	require.Len(t, evs, 1)
	assert.Equal(t, domain.EventTradesImported, evs[0].Kind)
	assert.Equal(t, 2, evs[0].Count)
}

func TestImportRejectsWholeBatch(t *testing.T) {
	h := newHarness()
	owner := uuid.New()
	ctx := context.Background()
	body := importCSV + "xrp,buy,1,-5,2025-01-03T10:00:00Z\n"

	_, err := h.svc.Import(ctx, owner, readCSV(t, body), importMapping)
	var ie *tradeimport.ImportError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Row 3: Quantity must be greater than 0.", ie.Error())

	list, err := h.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, h.events.For(owner))
}

func TestImportIsSerializedPerUser(t *testing.T) {
	h := newHarness()
	owner := uuid.New()
	ctx := context.Background()

	release, err := h.locker.Acquire(ctx, owner)
	require.NoError(t, err)

	_, err = h.svc.Import(ctx, owner, readCSV(t, importCSV), importMapping)
	assert.ErrorIs(t, err, domain.ErrImportInProgress)

	n, err := h.svc.Import(ctx, uuid.New(), readCSV(t, importCSV), importMapping)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	release()
	_, err = h.svc.Import(ctx, owner, readCSV(t, importCSV), importMapping)
	assert.NoError(t, err)
}

func TestExportRoundTrip(t *testing.T) {
	h := newHarness()
	owner := uuid.New()
	ctx := context.Background()
	_, err := h.svc.Create(ctx, owner, mustForm(t, buyForm))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, owner, mustForm(t, `{
		"symbol": "eth", "tradeType": "sell", "openPrice": 2000.5, "quantity": 0.25,
		"openedAt": "2024-02-01T08:00:00+02:00", "closePrice": 1900, "closedAt": "2024-02-03T08:00:00+02:00"
	}`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.svc.Export(ctx, owner, &buf))
	assert.True(t, strings.HasPrefix(buf.String(),
		"symbol,trade_type,open_price,quantity,opened_at,take_profit,stop_loss,leverage,close_price,closed_at,created_at\n"))

	other := uuid.New()
	n, err := h.svc.Import(ctx, other, readCSV(t, buf.String()), tradeimport.IdentityMapping())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := h.svc.List(ctx, other)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ETH", list[0].Symbol)
	assert.Equal(t, 0.25, list[0].Quantity)
}
