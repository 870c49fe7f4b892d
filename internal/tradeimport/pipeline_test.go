package tradeimport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriTapel/logitrades/internal/domain"
)

type fakeWriter struct {
	batches [][]*domain.Trade
	err     error
}

func (w *fakeWriter) InsertBatch(_ context.Context, trades []*domain.Trade) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, trades)
	return nil
}

func csvRows(t *testing.T, body string) []RawRow {
	t.Helper()
	rows, err := ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	return rows
}

const header = "Ticker,Type,Open price,Amount,Opened At,Take Profit,Stop Loss,Leverage,Close price,Closed At,Created At\n"

func TestPipelineImportsAllRows(t *testing.T) {
	w := &fakeWriter{}
	p := NewPipeline(NewCoercer(), w)
	owner := uuid.New()

	rows := csvRows(t, header+
		"btcusdt,buy,100,1,2025-01-01T10:00:00Z,120,90,2,,,\n"+
		"ethusdt,SELL,50,3,2025-01-02T10:00:00Z,,,,45,2025-01-03T10:00:00Z,\n")

	n, err := p.Import(context.Background(), owner, rows, fixtureMapping)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, w.batches, 1)
	require.Len(t, w.batches[0], 2)

	first := w.batches[0][0]
	assert.Equal(t, "BTCUSDT", first.Symbol)
	assert.Equal(t, owner, first.UserID)
	assert.Equal(t, 2, *first.Leverage)

	second := w.batches[0][1]
	assert.Equal(t, domain.TradeSell, second.Type)
	assert.True(t, second.IsClosed())
}

func TestPipelineAbortsOnFirstBadRow(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		stage Stage
		want  string
	}{
		{
			name:  "negative quantity",
			body:  "btc,buy,100,-5,2025-01-01T10:00:00Z,,,,,,\n",
			stage: StageField,
			want:  "Row 1: Quantity must be greater than 0.",
		},
		{
			name:  "unparseable price",
			body:  "btc,buy,abc,1,2025-01-01T10:00:00Z,,,,,,\n",
			stage: StageCoercion,
			want:  "Row 1: Open price must be a valid number.",
		},
		{
			name:  "fractional leverage",
			body:  "btc,buy,100,1,2025-01-01T10:00:00Z,,,1.5,,,\n",
			stage: StageCoercion,
			want:  "Row 1: Leverage must be a whole number.",
		},
		{
			name:  "negative leverage",
			body:  "btc,buy,100,1,2025-01-01T10:00:00Z,,,-2,,,\n",
			stage: StageField,
			want:  "Row 1: Leverage must be greater than 0.",
		},
		{
			name: "sell stop loss below open on second row",
			body: "btc,buy,100,1,2025-01-01T10:00:00Z,,,,,,\n" +
				"eth,sell,100,1,2025-01-01T10:00:00Z,,90,,,,\n" +
				"bad,buy,-1,1,2025-01-01T10:00:00Z,,,,,,\n",
			stage: StageBusiness,
			want:  "Row 2: For sell trades, stop loss must be greater than open price.",
		},
		{
			name: "row of empty cells keeps its number",
			body: "btc,buy,100,1,2025-01-01T10:00:00Z,,,,,,\n" +
				",,,,,,,,,,\n" +
				"msft,buy,-1,1,2025-01-01T10:00:00Z,,,,,,\n",
			stage: StageField,
			want:  "Row 2: Symbol is required.",
		},
		{
			name:  "leverage beyond 32 bits",
			body:  "btc,buy,100,1,2025-01-01T10:00:00Z,,,3000000000,,,\n",
			stage: StageCoercion,
			want:  "Row 1: Leverage must be a whole number.",
		},
		{
			name:  "close price without date",
			body:  "btc,buy,100,1,2025-01-01T10:00:00Z,,,,110,,\n",
			stage: StageBusiness,
			want:  "Row 1: Provide both price and date to close trade.",
		},
		{
			name:  "closed before opened",
			body:  "btc,buy,100,1,2025-01-05T10:00:00Z,,,,110,2025-01-01T10:00:00Z,\n",
			stage: StageBusiness,
			want:  "Row 1: Close date must be after opened date.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := &fakeWriter{}
			p := NewPipeline(NewCoercer(), w)

			n, err := p.Import(context.Background(), uuid.New(), csvRows(t, header+tc.body), fixtureMapping)
			assert.Zero(t, n)
			var ie *ImportError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tc.stage, ie.Stage)
			assert.Equal(t, tc.want, ie.Error())
			assert.Empty(t, w.batches)
		})
	}
}

func TestPipelineSyntheticOpenedAt(t *testing.T) {
	w := &fakeWriter{}
	p := NewPipeline(NewCoercer(), w)
	mapping := FieldMapping{
		FieldSymbol:     "Ticker",
		FieldTradeType:  "Type",
		FieldOpenPrice:  "Open price",
		FieldQuantity:   "Amount",
		FieldClosePrice: "Close price",
		FieldClosedAt:   "Closed At",
	}
	rows := csvRows(t, "Ticker,Type,Open price,Amount,Close price,Closed At\n"+
		"btc,buy,100,1,110,2025-01-10T10:00:00Z\n")

	n, err := p.Import(context.Background(), uuid.New(), rows, mapping)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	trade := w.batches[0][0]
	assert.Equal(t, "2025-01-09T10:00:00Z", trade.OpenedAt.Format("2006-01-02T15:04:05Z07:00"))
}

func TestPipelineMissingColumn(t *testing.T) {
	p := NewPipeline(NewCoercer(), &fakeWriter{})
	rows := csvRows(t, "Ticker,Type,Open price\nbtc,buy,100\n")

	_, err := p.Import(context.Background(), uuid.New(), rows, fixtureMapping)
	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, `Row 1: Column "Amount" mapped to quantity is missing from the file.`, ie.Error())
}

func TestPipelineEmptyFile(t *testing.T) {
	w := &fakeWriter{}
	p := NewPipeline(NewCoercer(), w)

	n, err := p.Import(context.Background(), uuid.New(), csvRows(t, header), fixtureMapping)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.batches)
}

func TestPipelinePersistenceFailure(t *testing.T) {
	storeErr := errors.New("connection reset")
	p := NewPipeline(NewCoercer(), &fakeWriter{err: storeErr})
	rows := csvRows(t, header+"btc,buy,100,1,2025-01-01T10:00:00Z,,,,,,\n")

	n, err := p.Import(context.Background(), uuid.New(), rows, fixtureMapping)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, storeErr)
	var ie *ImportError
	assert.False(t, errors.As(err, &ie))
}
