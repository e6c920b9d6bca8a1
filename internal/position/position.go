// Package position implements the Position Manager: the sole authority for
// open positions, enforcing atomic, limit-respecting, exposure-respecting
// open and close with precise PnL at close.
package position

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tradecore/engine/internal/money"
	"github.com/tradecore/engine/internal/tradeerrors"
)

// Side is the direction a position was opened in.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// Position is a single open position tracked by the Manager.
type Position struct {
	ID              string
	Symbol          string
	Side            Side
	Quantity        money.Quantity
	EntryPrice      money.Price
	CurrentPrice    money.Price
	hasCurrentPrice bool
	StopLossPrice   *money.Price
	TakeProfitPrice *money.Price
	OpenedAt        time.Time
}

func (p *Position) notional() float64 {
	return p.Quantity.Float64() * p.EntryPrice.Float64()
}

func (p *Position) pnl() money.PnL {
	if !p.hasCurrentPrice {
		return money.ZeroPnL
	}
	if p.Side == Long {
		return money.LongPnL(p.Quantity, p.EntryPrice, p.CurrentPrice)
	}
	return money.ShortPnL(p.Quantity, p.EntryPrice, p.CurrentPrice)
}

func (p *Position) shouldStopLoss() bool {
	if !p.hasCurrentPrice || p.StopLossPrice == nil {
		return false
	}
	cur, sl := p.CurrentPrice.Float64(), p.StopLossPrice.Float64()
	if p.Side == Long {
		return cur <= sl
	}
	return cur >= sl
}

func (p *Position) shouldTakeProfit() bool {
	if !p.hasCurrentPrice || p.TakeProfitPrice == nil {
		return false
	}
	cur, tp := p.CurrentPrice.Float64(), p.TakeProfitPrice.Float64()
	if p.Side == Long {
		return cur >= tp
	}
	return cur <= tp
}

// Limits bounds the Manager's position count and portfolio exposure.
type Limits struct {
	MaxPerSymbol        int
	MaxTotal            int
	MaxPortfolioExposure float64
}

// Manager is the sole authority for open positions. All methods lock the
// same mutex; a failed open or reserve leaves state byte-identical to
// before the call.
type Manager struct {
	mu             sync.Mutex
	positions      map[string]*Position
	limits         Limits
	portfolioValue float64
	now            func() time.Time
}

// NewManager constructs a Manager with a fixed portfolio_value snapshot.
//
// TODO: portfolio_value is never refreshed after construction; a production
// deployment needs a hook to resync it against the Balance capability
// periodically rather than trusting the value supplied at startup.
func NewManager(limits Limits, portfolioValue float64) *Manager {
	return &Manager{
		positions:      make(map[string]*Position),
		limits:         limits,
		portfolioValue: portfolioValue,
		now:            time.Now,
	}
}

func (m *Manager) symbolCount(symbol string) int {
	n := 0
	for _, p := range m.positions {
		if p.Symbol == symbol {
			n++
		}
	}
	return n
}

func (m *Manager) currentExposureLocked() float64 {
	if m.portfolioValue <= 0 {
		return 0
	}
	total := 0.0
	for _, p := range m.positions {
		total += p.notional()
	}
	return total / m.portfolioValue
}

// ReserveHeadroom performs the same count/exposure checks Open will make,
// without mutating state. It is the Order Executor's precheck (spec §4.5
// step 11).
func (m *Manager) ReserveHeadroom(symbol string, notional float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.symbolCount(symbol); c >= m.limits.MaxPerSymbol {
		return &tradeerrors.PositionLimitExceeded{Type: tradeerrors.LimitPerSymbol, Current: c, Ceiling: m.limits.MaxPerSymbol}
	}
	if c := len(m.positions); c >= m.limits.MaxTotal {
		return &tradeerrors.PositionLimitExceeded{Type: tradeerrors.LimitTotal, Current: c, Ceiling: m.limits.MaxTotal}
	}
	if m.portfolioValue > 0 {
		projected := m.currentExposureLocked() + notional/m.portfolioValue
		if projected > m.limits.MaxPortfolioExposure {
			return &tradeerrors.InvariantViolation{Component: "position.Manager", Detail: "projected exposure exceeds max_portfolio_exposure"}
		}
	}
	return nil
}

// Open validates limits and available cash in order, computes SL/TP
// absolute prices from optional percentages, and inserts the position. On
// any check failure state is untouched.
func (m *Manager) Open(symbol string, side Side, quantity money.Quantity, entryPrice money.Price, slPct, tpPct *float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.symbolCount(symbol); c >= m.limits.MaxPerSymbol {
		return "", &tradeerrors.PositionLimitExceeded{Type: tradeerrors.LimitPerSymbol, Current: c, Ceiling: m.limits.MaxPerSymbol}
	}
	if c := len(m.positions); c >= m.limits.MaxTotal {
		return "", &tradeerrors.PositionLimitExceeded{Type: tradeerrors.LimitTotal, Current: c, Ceiling: m.limits.MaxTotal}
	}

	notional := quantity.Float64() * entryPrice.Float64()
	availableCash := m.portfolioValue - m.sumNotionalLocked()
	if notional > availableCash {
		return "", &tradeerrors.InsufficientBalance{Currency: "portfolio", Required: notional, Available: availableCash}
	}

	if m.portfolioValue > 0 {
		projected := m.currentExposureLocked() + notional/m.portfolioValue
		if projected > m.limits.MaxPortfolioExposure {
			return "", &tradeerrors.InvariantViolation{Component: "position.Manager", Detail: "projected exposure exceeds max_portfolio_exposure"}
		}
	}

	var sl, tp *money.Price
	if slPct != nil {
		v := entryPrice.Mul(1 - *slPct)
		if side == Short {
			v = entryPrice.Mul(1 + *slPct)
		}
		p, err := money.NewPrice(v)
		if err == nil {
			sl = &p
		}
	}
	if tpPct != nil {
		v := entryPrice.Mul(1 + *tpPct)
		if side == Short {
			v = entryPrice.Mul(1 - *tpPct)
		}
		p, err := money.NewPrice(v)
		if err == nil {
			tp = &p
		}
	}

	id := uuid.New().String()
	m.positions[id] = &Position{
		ID:              id,
		Symbol:          symbol,
		Side:            side,
		Quantity:        quantity,
		EntryPrice:      entryPrice,
		StopLossPrice:   sl,
		TakeProfitPrice: tp,
		OpenedAt:        m.now(),
	}
	return id, nil
}

func (m *Manager) sumNotionalLocked() float64 {
	total := 0.0
	for _, p := range m.positions {
		total += p.notional()
	}
	return total
}

// Close removes the position and returns its realized PnL. If no
// current_price was ever set, PnL is returned as zero rather than an
// error (the permissive policy described below).
//
// An alternative, stricter policy would return tradeerrors.MissingMarkPrice
// instead of a zero PnL; this Manager implements the permissive variant,
// matching the source this was modeled on.
func (m *Manager) Close(positionID string) (money.PnL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[positionID]
	if !ok {
		return money.PnL{}, &tradeerrors.InvariantViolation{Component: "position.Manager", Detail: "position " + positionID + " not found"}
	}
	pnl := p.pnl()
	delete(m.positions, positionID)
	return pnl, nil
}

// UpdatePrice sets a position's current_price; does not emit events.
func (m *Manager) UpdatePrice(positionID string, price money.Price) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[positionID]
	if !ok {
		return &tradeerrors.InvariantViolation{Component: "position.Manager", Detail: "position " + positionID + " not found"}
	}
	p.CurrentPrice = price
	p.hasCurrentPrice = true
	return nil
}

// Trigger names the kind of price trigger CheckTriggers reports.
type Trigger string

const (
	TriggerStopLoss   Trigger = "stop_loss"
	TriggerTakeProfit Trigger = "take_profit"
)

// TriggerEvent pairs a position id with the trigger that fired for it.
type TriggerEvent struct {
	PositionID string
	Trigger    Trigger
}

// CheckTriggers reports every position whose stop-loss or take-profit has
// fired against its current price. Stop-loss takes priority when somehow
// both conditions hold simultaneously.
func (m *Manager) CheckTriggers() []TriggerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []TriggerEvent
	for id, p := range m.positions {
		if p.shouldStopLoss() {
			events = append(events, TriggerEvent{PositionID: id, Trigger: TriggerStopLoss})
		} else if p.shouldTakeProfit() {
			events = append(events, TriggerEvent{PositionID: id, Trigger: TriggerTakeProfit})
		}
	}
	return events
}

// Get returns a copy of a tracked position.
func (m *Manager) Get(positionID string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[positionID]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Count returns the total number of open positions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

// SymbolCount returns the number of open positions for symbol.
func (m *Manager) SymbolCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.symbolCount(symbol)
}

// PortfolioExposure returns Σ notional / portfolio_value across open
// positions.
func (m *Manager) PortfolioExposure() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentExposureLocked()
}
