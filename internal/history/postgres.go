package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed history store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const recordColumns = `id, instrument, side, strategy_tag,
       entry_price::TEXT, exit_price::TEXT, quantity,
       pnl::TEXT, pnl_pct::TEXT,
       entry_time, exit_time, exit_reason`

func (s *PostgresStore) Append(ctx context.Context, r *model.TradeRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trade_records (id, instrument, side, strategy_tag,
		        entry_price, exit_price, quantity, pnl, pnl_pct,
		        entry_time, exit_time, exit_reason)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8::NUMERIC, $9::NUMERIC, $10, $11, $12)`,
		r.ID, r.Instrument, string(r.Side), r.StrategyTag,
		r.EntryPrice.String(), r.ExitPrice.String(), r.Quantity,
		r.PnL.String(), r.PnLPct.String(),
		r.EntryTime, r.ExitTime, r.ExitReason,
	)
	if err != nil {
		return fmt.Errorf("append trade record %s: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]model.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM trade_records ORDER BY exit_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

func (s *PostgresStore) ListByStrategy(ctx context.Context, tag string) ([]model.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM trade_records WHERE strategy_tag = $1 ORDER BY exit_time`, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

func (s *PostgresStore) ListByInstrument(ctx context.Context, instrument string) ([]model.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM trade_records WHERE instrument = $1 ORDER BY exit_time`, instrument)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecords reads pgx rows into TradeRecord slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTradeRecords(rows pgxRows) ([]model.TradeRecord, error) {
	var records []model.TradeRecord
	for rows.Next() {
		var r model.TradeRecord
		var side, entryS, exitS, pnlS, pnlPctS string

		if err := rows.Scan(&r.ID, &r.Instrument, &side, &r.StrategyTag,
			&entryS, &exitS, &r.Quantity,
			&pnlS, &pnlPctS,
			&r.EntryTime, &r.ExitTime, &r.ExitReason); err != nil {
			return nil, err
		}

		r.Side = model.ContractSide(side)
		r.EntryPrice, _ = decimal.NewFromString(entryS)
		r.ExitPrice, _ = decimal.NewFromString(exitS)
		r.PnL, _ = decimal.NewFromString(pnlS)
		r.PnLPct, _ = decimal.NewFromString(pnlPctS)

		records = append(records, r)
	}
	return records, rows.Err()
}
