package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/AnriTapel/logitrades/internal/domain"
	"github.com/AnriTapel/logitrades/internal/tradeimport"
)

// Export writes the user's trades as CSV with canonical field names as
// headers, so the file imports back with tradeimport.IdentityMapping.
func (s *Service) Export(ctx context.Context, userID uuid.UUID, w io.Writer) error {
	trades, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(tradeimport.Fields))
	for i, f := range tradeimport.Fields {
		header[i] = string(f)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range trades {
		if err := cw.Write(exportRecord(&trades[i])); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRecord(t *domain.Trade) []string {
	return []string{
		t.Symbol,
		string(t.Type),
		formatFloat(&t.OpenPrice),
		formatFloat(&t.Quantity),
		formatTime(&t.OpenedAt),
		formatFloat(t.TakeProfit),
		formatFloat(t.StopLoss),
		formatInt(t.Leverage),
		formatFloat(t.ClosePrice),
		formatTime(t.ClosedAt),
		formatTime(&t.CreatedAt),
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatTime(v *time.Time) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.Format(time.RFC3339Nano)
}
