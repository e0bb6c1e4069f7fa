package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Inconsistency diferencia detectada entre el saldo del último movimiento y la suma de la serie.
type Inconsistency struct {
	WarehouseID    string          `json:"warehouse_id"`
	Reference      string          `json:"reference"`
	LastMovementID int64           `json:"last_movement_id"`
	LastBalance    decimal.Decimal `json:"last_balance"`
	LedgerSum      decimal.Decimal `json:"ledger_sum"`
	DetectedAt     time.Time       `json:"detected_at"`
}

// InconsistencyAlerter canal de alertas de inconsistencia. No devuelve error: una alerta fallida
// no debe abortar la conciliación.
type InconsistencyAlerter interface {
	Alert(ctx context.Context, inc Inconsistency)
}

// LogAlerter registra la inconsistencia a nivel error.
type LogAlerter struct {
	log *logger.Logger
}

// NewLogAlerter construye el alertador por log.
func NewLogAlerter(log *logger.Logger) *LogAlerter {
	return &LogAlerter{log: log}
}

func (a *LogAlerter) Alert(_ context.Context, inc Inconsistency) {
	a.log.Error().
		Str("event", "stock.inconsistency").
		Str("warehouse_id", inc.WarehouseID).
		Str("reference", inc.Reference).
		Int64("last_movement_id", inc.LastMovementID).
		Str("last_balance", inc.LastBalance.String()).
		Str("ledger_sum", inc.LedgerSum.String()).
		Msg("saldo del libro no coincide con la suma de movimientos")
}

// MultiAlerter reparte la alerta a varios canales en orden.
type MultiAlerter []InconsistencyAlerter

func (m MultiAlerter) Alert(ctx context.Context, inc Inconsistency) {
	for _, a := range m {
		if a != nil {
			a.Alert(ctx, inc)
		}
	}
}
