package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tradecore/engine/internal/reconcile"
	"github.com/tradecore/engine/internal/screening"
)

// PositionRecord is the persisted form of a Position Manager position.
type PositionRecord struct {
	ID            string
	Symbol        string
	Exchange      string
	Side          string
	EntryPrice    float64
	Quantity      float64
	CurrentPrice  *float64
	UnrealizedPnL *float64
	Status        string
	OpenedAt      time.Time
	ClosedAt      *time.Time
	StopLoss      *float64
	TakeProfit    *float64
}

// PositionRepository persists positions to the `positions` table.
type PositionRepository struct {
	db *SQLiteDB
}

// NewPositionRepository constructs a PositionRepository.
func NewPositionRepository(db *SQLiteDB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Upsert inserts or updates a position record by id.
func (r *PositionRepository) Upsert(ctx context.Context, p PositionRecord) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO positions (id, symbol, exchange, side, entry_price, quantity, current_price,
			unrealized_pnl, status, opened_at, closed_at, stop_loss, take_profit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			current_price = excluded.current_price,
			unrealized_pnl = excluded.unrealized_pnl,
			status = excluded.status,
			closed_at = excluded.closed_at,
			updated_at = CURRENT_TIMESTAMP
	`, p.ID, p.Symbol, p.Exchange, p.Side, p.EntryPrice, p.Quantity, p.CurrentPrice,
		p.UnrealizedPnL, p.Status, p.OpenedAt, p.ClosedAt, p.StopLoss, p.TakeProfit)
	return err
}

// ListOpen returns every position with status='open'.
func (r *PositionRepository) ListOpen(ctx context.Context) ([]PositionRecord, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT id, symbol, exchange, side, entry_price, quantity, current_price,
			unrealized_pnl, status, opened_at, closed_at, stop_loss, take_profit
		FROM positions WHERE status = 'open'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		var p PositionRecord
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Exchange, &p.Side, &p.EntryPrice, &p.Quantity,
			&p.CurrentPrice, &p.UnrealizedPnL, &p.Status, &p.OpenedAt, &p.ClosedAt, &p.StopLoss, &p.TakeProfit); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TradeRecord is the persisted form of one executed fill.
type TradeRecord struct {
	ID               string
	PositionID       *string
	Symbol           string
	Exchange         string
	Side             string
	Price            float64
	Quantity         float64
	Fee              float64
	ExchangeOrderID  *string
	ExecutedAt       time.Time
	Strategy         string
	SignalConfidence *float64
}

// TradeRepository persists trades to the `trades` table.
type TradeRepository struct {
	db *SQLiteDB
}

// NewTradeRepository constructs a TradeRepository.
func NewTradeRepository(db *SQLiteDB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Insert records one executed trade.
func (r *TradeRepository) Insert(ctx context.Context, t TradeRecord) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO trades (id, position_id, symbol, exchange, side, price, quantity, fee,
			exchange_order_id, executed_at, strategy, signal_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.PositionID, t.Symbol, t.Exchange, t.Side, t.Price, t.Quantity, t.Fee,
		t.ExchangeOrderID, t.ExecutedAt, t.Strategy, t.SignalConfidence)
	return err
}

// ListBySymbol returns trades for symbol, most recent first.
func (r *TradeRepository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]TradeRecord, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT id, position_id, symbol, exchange, side, price, quantity, fee,
			exchange_order_id, executed_at, strategy, signal_confidence
		FROM trades WHERE symbol = ? ORDER BY executed_at DESC LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.ID, &t.PositionID, &t.Symbol, &t.Exchange, &t.Side, &t.Price,
			&t.Quantity, &t.Fee, &t.ExchangeOrderID, &t.ExecutedAt, &t.Strategy, &t.SignalConfidence); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AuditLogRepository appends structured events to `audit_log`.
type AuditLogRepository struct {
	db *SQLiteDB
}

// NewAuditLogRepository constructs an AuditLogRepository.
func NewAuditLogRepository(db *SQLiteDB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append records one audit event; details is marshaled to JSON.
func (r *AuditLogRepository) Append(ctx context.Context, eventType, exchange string, symbol *string, details interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	_, err = r.db.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, exchange, symbol, details) VALUES (?, ?, ?, ?)
	`, eventType, exchange, symbol, string(payload))
	return err
}

// ReconciliationRepository persists Reconciliation Service reports to
// `reconciliation_audit` and satisfies reconcile.AuditStore.
type ReconciliationRepository struct {
	db *SQLiteDB
}

// NewReconciliationRepository constructs a ReconciliationRepository.
func NewReconciliationRepository(db *SQLiteDB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// SaveReconciliation implements reconcile.AuditStore.
func (r *ReconciliationRepository) SaveReconciliation(ctx context.Context, report reconcile.Report) error {
	payload, err := json.Marshal(report.Discrepancies)
	if err != nil {
		return err
	}
	_, err = r.db.db.ExecContext(ctx, `
		INSERT INTO reconciliation_audit (reconciliation_id, exchange_id, reconciliation_timestamp,
			status, discrepancy_count, discrepancies_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, report.ID, report.Exchange, report.Timestamp,
		report.Status.String(), len(report.Discrepancies), string(payload))
	return err
}

// DydxOrderMetadataRecord is dYdX-specific order bookkeeping that does not
// fit the exchange-agnostic trades table: good-until-block, client id,
// subaccount, order flags, and clob pair, all required to cancel or query
// an order back against the dYdX chain.
type DydxOrderMetadataRecord struct {
	OrderID          string
	DydxOrderID      string
	GoodUntilBlock   int64
	ClientID         int64
	SubaccountNumber int32
	OrderFlags       int32
	ClobPairID       int32
	Symbol           string
	Side             string
	Quantity         float64
	Price            *float64
	OrderType        string
	Status           string
	PlacedAt         time.Time
}

// DydxOrderMetadataRepository persists dYdX order metadata.
type DydxOrderMetadataRepository struct {
	db *SQLiteDB
}

// NewDydxOrderMetadataRepository constructs a DydxOrderMetadataRepository.
func NewDydxOrderMetadataRepository(db *SQLiteDB) *DydxOrderMetadataRepository {
	return &DydxOrderMetadataRepository{db: db}
}

// Insert records one dYdX order's chain metadata.
func (r *DydxOrderMetadataRepository) Insert(ctx context.Context, m DydxOrderMetadataRecord) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO dydx_order_metadata (order_id, dydx_order_id, good_until_block, client_id,
			subaccount_number, order_flags, clob_pair_id, symbol, side, quantity, price,
			order_type, status, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.OrderID, m.DydxOrderID, m.GoodUntilBlock, m.ClientID, m.SubaccountNumber, m.OrderFlags,
		m.ClobPairID, m.Symbol, m.Side, m.Quantity, m.Price, m.OrderType, m.Status, m.PlacedAt)
	return err
}

// UpdateStatus transitions an order's lifecycle status (e.g. open -> filled).
func (r *DydxOrderMetadataRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	_, err := r.db.db.ExecContext(ctx, `
		UPDATE dydx_order_metadata SET status = ? WHERE order_id = ?
	`, status, orderID)
	return err
}

// ScreeningRepository persists symbol screening results and satisfies
// screening.Store and screening.HistoryReader.
type ScreeningRepository struct {
	db *SQLiteDB
}

// NewScreeningRepository constructs a ScreeningRepository.
func NewScreeningRepository(db *SQLiteDB) *ScreeningRepository {
	return &ScreeningRepository{db: db}
}

// Insert implements screening.Store.
func (r *ScreeningRepository) Insert(ctx context.Context, rec screening.Result) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO symbol_screening_results (symbol, exchange, volatility_score, volume_score,
			spread_score, momentum_score, overall_score, recommendation, screened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Symbol, rec.Exchange, rec.VolatilityScore, rec.VolumeScore,
		rec.SpreadScore, rec.MomentumScore, rec.OverallScore, string(rec.Recommendation), rec.ScreenedAt)
	return err
}

// History implements screening.HistoryReader: every screening result
// recorded for (exchange, symbol), most recent first.
func (r *ScreeningRepository) History(ctx context.Context, exchange, symbol string, limit int) ([]screening.Result, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT symbol, exchange, volatility_score, volume_score, spread_score, momentum_score,
			overall_score, recommendation, screened_at
		FROM symbol_screening_results
		WHERE exchange = ? AND symbol = ?
		ORDER BY screened_at DESC LIMIT ?
	`, exchange, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []screening.Result
	for rows.Next() {
		var rec screening.Result
		var recommendation string
		if err := rows.Scan(&rec.Symbol, &rec.Exchange, &rec.VolatilityScore, &rec.VolumeScore,
			&rec.SpreadScore, &rec.MomentumScore, &rec.OverallScore, &recommendation, &rec.ScreenedAt); err != nil {
			return nil, err
		}
		rec.Recommendation = screening.RecommendationCategory(recommendation)
		out = append(out, rec)
	}
	return out, rows.Err()
}
