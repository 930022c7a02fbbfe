// Package history defines the persistence interface for closed-trade
// records. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing and single-process
// runs without a database).
package history

import (
	"context"

	"github.com/optix/scalp-engine/internal/model"
)

// Store is the trade-history persistence interface. Records are
// append-only: once written they are never modified or deleted.
type Store interface {
	// Append persists one closed-trade record.
	Append(ctx context.Context, rec *model.TradeRecord) error

	// ListAll returns every record ordered by exit time.
	ListAll(ctx context.Context) ([]model.TradeRecord, error)

	// ListByStrategy returns all records carrying the given strategy tag,
	// ordered by exit time.
	ListByStrategy(ctx context.Context, tag string) ([]model.TradeRecord, error)

	// ListByInstrument returns all records for one instrument, ordered by
	// exit time.
	ListByInstrument(ctx context.Context, instrument string) ([]model.TradeRecord, error)
}
