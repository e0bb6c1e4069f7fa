package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// WriteMode modo de escritura de un movimiento.
type WriteMode int

const (
	// ModeDelta documentos y traslados: Quantity es un delta que se acumula en la fila del documento.
	ModeDelta WriteMode = iota
	// ModeAbsoluteCheckpoint conteos: Quantity es la cantidad absoluta afirmada (saldo).
	ModeAbsoluteCheckpoint
)

// Entry entrada para el LedgerWriter.
type Entry struct {
	WarehouseID  string
	Reference    string
	ProductID    string
	DocumentType string
	DocumentID   string
	Quantity     decimal.Decimal
	Mode         WriteMode
	MovedAt      time.Time
	Description  string
}

// Key serie afectada por la entrada.
func (e Entry) Key() entity.StockKey {
	return entity.StockKey{WarehouseID: e.WarehouseID, Reference: e.Reference}
}

// LedgerWriter escribe de forma idempotente una fila del libro (upsert o borrado) y mantiene
// los saldos de la serie. Todas las rutas (documentos, conteos, traslados, reconstrucción) pasan por aquí.
type LedgerWriter struct {
	log *logger.Logger
	now Clock
}

// NewLedgerWriter construye el escritor del libro.
func NewLedgerWriter(log *logger.Logger) *LedgerWriter {
	return &LedgerWriter{log: log, now: time.Now}
}

// Upsert bloquea la serie, escribe la fila y recalcula los saldos desde la fecha afectada.
// Debe llamarse dentro de TxRunner.Run con los repos de esa transacción.
func (w *LedgerWriter) Upsert(ctx context.Context, repos Repositories, e Entry) error {
	if err := repos.Stocks.Lock(ctx, e.WarehouseID, e.Reference); err != nil {
		return err
	}
	from, touched, err := w.write(ctx, repos, e)
	if err != nil || !touched {
		return err
	}
	return w.Resequence(ctx, repos, e.WarehouseID, e.Reference, from)
}

// Remove borra la fila (bodega, referencia, documento) si existe y recalcula la serie.
func (w *LedgerWriter) Remove(ctx context.Context, repos Repositories, warehouseID, reference, documentType, documentID string) error {
	if err := repos.Stocks.Lock(ctx, warehouseID, reference); err != nil {
		return err
	}
	existing, err := repos.Movements.GetByDocument(ctx, warehouseID, reference, documentType, documentID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if err := repos.Movements.Delete(ctx, existing.ID); err != nil {
		return err
	}
	return w.Resequence(ctx, repos, warehouseID, reference, existing.MovedAt)
}

// Resequence recalcula saldos de la serie desde from (inclusive) y guarda solo las filas que cambian.
func (w *LedgerWriter) Resequence(ctx context.Context, repos Repositories, warehouseID, reference string, from time.Time) error {
	opening, err := repos.Movements.SumBefore(ctx, warehouseID, reference, from, "", "")
	if err != nil {
		return err
	}
	series, err := repos.Movements.ListSeriesFrom(ctx, warehouseID, reference, from)
	if err != nil {
		return err
	}
	dominv.SortSeries(series)
	changed := dominv.Resequence(opening, series)
	for _, m := range changed {
		if err := repos.Movements.Save(ctx, m); err != nil {
			return err
		}
	}
	if len(changed) > 0 {
		w.log.Debug().
			Str("warehouse_id", warehouseID).
			Str("reference", reference).
			Int("rows", len(changed)).
			Msg("saldos recalculados")
	}
	return nil
}

// write aplica la entrada sin recalcular la serie. Devuelve la fecha desde la que hay que recalcular
// y si la serie cambió.
func (w *LedgerWriter) write(ctx context.Context, repos Repositories, e Entry) (time.Time, bool, error) {
	if e.WarehouseID == "" || e.Reference == "" {
		return time.Time{}, false, fmt.Errorf("%w: bodega y referencia son obligatorias", domain.ErrInvalidInput)
	}
	if e.MovedAt.IsZero() {
		e.MovedAt = w.now()
	}

	var existing *entity.StockMovement
	if e.DocumentType != "" && e.DocumentID != "" {
		var err error
		existing, err = repos.Movements.GetByDocument(ctx, e.WarehouseID, e.Reference, e.DocumentType, e.DocumentID)
		if err != nil {
			return time.Time{}, false, err
		}
	}

	if e.Mode == ModeAbsoluteCheckpoint {
		return w.writeCheckpoint(ctx, repos, e, existing)
	}
	return w.writeDelta(ctx, repos, e, existing)
}

func (w *LedgerWriter) writeDelta(ctx context.Context, repos Repositories, e Entry, existing *entity.StockMovement) (time.Time, bool, error) {
	if existing == nil {
		// Nunca se escriben filas sin efecto
		if e.Quantity.IsZero() {
			return time.Time{}, false, nil
		}
		prior, err := repos.Movements.SumBefore(ctx, e.WarehouseID, e.Reference, e.MovedAt, "", "")
		if err != nil {
			return time.Time{}, false, err
		}
		m := &entity.StockMovement{
			WarehouseID:  e.WarehouseID,
			Reference:    e.Reference,
			ProductID:    e.ProductID,
			DocumentType: e.DocumentType,
			DocumentID:   e.DocumentID,
			Quantity:     e.Quantity,
			Balance:      prior.Add(e.Quantity),
			Description:  e.Description,
			MovedAt:      e.MovedAt,
		}
		if err := repos.Movements.Save(ctx, m); err != nil {
			return time.Time{}, false, err
		}
		return m.MovedAt, true, nil
	}

	if e.Quantity.IsZero() {
		return time.Time{}, false, nil
	}
	existing.Quantity = existing.Quantity.Add(e.Quantity)
	if existing.Quantity.IsZero() {
		if err := repos.Movements.Delete(ctx, existing.ID); err != nil {
			return time.Time{}, false, err
		}
		return existing.MovedAt, true, nil
	}
	existing.Balance = existing.Balance.Add(e.Quantity)
	if e.Description != "" {
		existing.Description = e.Description
	}
	if err := repos.Movements.Save(ctx, existing); err != nil {
		return time.Time{}, false, err
	}
	return existing.MovedAt, true, nil
}

func (w *LedgerWriter) writeCheckpoint(ctx context.Context, repos Repositories, e Entry, existing *entity.StockMovement) (time.Time, bool, error) {
	at := e.MovedAt
	if existing != nil {
		at = existing.MovedAt
	}
	prior, err := repos.Movements.SumBefore(ctx, e.WarehouseID, e.Reference, at, e.DocumentType, e.DocumentID)
	if err != nil {
		return time.Time{}, false, err
	}
	delta := dominv.CheckpointDelta(e.Quantity, prior)

	// Un checkpoint se conserva aunque afirme cero: fija el saldo para los movimientos posteriores
	if existing == nil {
		m := &entity.StockMovement{
			WarehouseID:  e.WarehouseID,
			Reference:    e.Reference,
			ProductID:    e.ProductID,
			DocumentType: e.DocumentType,
			DocumentID:   e.DocumentID,
			Quantity:     delta,
			Balance:      e.Quantity,
			Description:  e.Description,
			MovedAt:      at,
		}
		if err := repos.Movements.Save(ctx, m); err != nil {
			return time.Time{}, false, err
		}
		return at, true, nil
	}

	existing.Quantity = delta
	existing.Balance = e.Quantity
	if e.Description != "" {
		existing.Description = e.Description
	}
	if err := repos.Movements.Save(ctx, existing); err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}
