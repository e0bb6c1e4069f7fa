package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// CountWorkflow flujo de conteos de inventario: abrir, escanear líneas, completar y deshacer.
type CountWorkflow struct {
	tx         TxRunner
	writer     *LedgerWriter
	reconciler *SnapshotReconciler
	hooks      *HookRegistry
	log        *logger.Logger
	now        Clock
}

// NewCountWorkflow construye el flujo de conteos.
func NewCountWorkflow(tx TxRunner, writer *LedgerWriter, reconciler *SnapshotReconciler, hooks *HookRegistry, log *logger.Logger) *CountWorkflow {
	return &CountWorkflow{tx: tx, writer: writer, reconciler: reconciler, hooks: hooks, log: log, now: time.Now}
}

// CreateCountInput datos para abrir un conteo.
type CreateCountInput struct {
	CompanyID   string // si no está vacío la bodega debe pertenecer a la empresa
	WarehouseID string
	Note        string
	UserID      string
}

// CountLineInput datos de una línea escaneada o tecleada.
type CountLineInput struct {
	Reference string
	ProductID string // opcional: se resuelve por referencia
	Quantity  decimal.Decimal
	UserID    string
}

// CountDetail conteo con sus líneas.
type CountDetail struct {
	Count *entity.StockCount
	Lines []*entity.StockCountLine
}

// Create abre un conteo para una bodega.
func (uc *CountWorkflow) Create(ctx context.Context, in CreateCountInput) (*entity.StockCount, error) {
	if in.WarehouseID == "" {
		return nil, fmt.Errorf("%w: bodega obligatoria", domain.ErrInvalidInput)
	}
	count := &entity.StockCount{
		ID:          uuid.New().String(),
		WarehouseID: in.WarehouseID,
		StartedAt:   uc.now(),
		Note:        in.Note,
		UserID:      in.UserID,
	}
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := loadWarehouse(ctx, repos, in.WarehouseID, in.CompanyID); err != nil {
			return err
		}
		return repos.Counts.Create(ctx, count)
	})
	if err != nil {
		return nil, err
	}
	return count, nil
}

// Get devuelve el conteo con sus líneas. Con companyID no vacío la bodega del conteo debe ser de
// esa empresa; lo mismo vale para el resto de operaciones sobre un conteo existente.
func (uc *CountWorkflow) Get(ctx context.Context, companyID, countID string) (*CountDetail, error) {
	var out *CountDetail
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		count, err := repos.Counts.GetByID(ctx, countID)
		if err != nil {
			return err
		}
		if count == nil {
			return fmt.Errorf("%w: conteo %s", domain.ErrNotFound, countID)
		}
		if _, err := loadWarehouse(ctx, repos, count.WarehouseID, companyID); err != nil {
			return err
		}
		lines, err := repos.Counts.ListLines(ctx, countID)
		if err != nil {
			return err
		}
		out = &CountDetail{Count: count, Lines: lines}
		return nil
	})
	return out, err
}

// AddLine registra una referencia en un conteo abierto. Si la referencia ya tiene línea se suma 1
// (lectura repetida del escáner); si no, se crea con la cantidad indicada.
func (uc *CountWorkflow) AddLine(ctx context.Context, companyID, countID string, in CountLineInput) (*entity.StockCountLine, error) {
	if in.Reference == "" {
		return nil, fmt.Errorf("%w: referencia obligatoria", domain.ErrInvalidInput)
	}
	if in.Quantity.IsNegative() {
		return nil, fmt.Errorf("%w: la cantidad contada no puede ser negativa", domain.ErrInvalidInput)
	}
	var out *entity.StockCountLine
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		count, err := uc.openCount(ctx, repos, companyID, countID)
		if err != nil {
			return err
		}
		line, err := repos.Counts.GetLineByReference(ctx, countID, in.Reference)
		if err != nil {
			return err
		}
		if line != nil {
			line.Quantity = line.Quantity.Add(decimal.NewFromInt(1))
		} else {
			productID, err := resolveProductID(ctx, repos, in.ProductID, in.Reference)
			if err != nil {
				return err
			}
			line = &entity.StockCountLine{
				ID:        uuid.New().String(),
				CountID:   countID,
				Reference: in.Reference,
				ProductID: productID,
				Quantity:  in.Quantity,
			}
		}
		line.RecordedAt = uc.now()
		line.UserID = in.UserID

		if err := uc.hooks.Fire(ctx, HookEvent{
			Point:        HookAddCountLine,
			WarehouseID:  count.WarehouseID,
			Reference:    line.Reference,
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			DocumentType: entity.DocumentTypeCount,
			DocumentID:   countID,
		}); err != nil {
			return err
		}
		if err := repos.Counts.SaveLine(ctx, line); err != nil {
			return err
		}
		out = line
		return nil
	})
	return out, err
}

// UpdateLine fija la cantidad de una línea de un conteo abierto.
func (uc *CountWorkflow) UpdateLine(ctx context.Context, companyID, countID, lineID string, quantity decimal.Decimal) (*entity.StockCountLine, error) {
	if quantity.IsNegative() {
		return nil, fmt.Errorf("%w: la cantidad contada no puede ser negativa", domain.ErrInvalidInput)
	}
	var out *entity.StockCountLine
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := uc.openCount(ctx, repos, companyID, countID); err != nil {
			return err
		}
		line, err := countLine(ctx, repos, countID, lineID)
		if err != nil {
			return err
		}
		line.Quantity = quantity
		line.RecordedAt = uc.now()
		if err := repos.Counts.SaveLine(ctx, line); err != nil {
			return err
		}
		out = line
		return nil
	})
	return out, err
}

// DeleteLine elimina una línea de un conteo abierto.
func (uc *CountWorkflow) DeleteLine(ctx context.Context, companyID, countID, lineID string) error {
	return uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := uc.openCount(ctx, repos, companyID, countID); err != nil {
			return err
		}
		if _, err := countLine(ctx, repos, countID, lineID); err != nil {
			return err
		}
		return repos.Counts.DeleteLine(ctx, lineID)
	})
}

// Complete aplica el conteo al libro: por cada línea escribe un checkpoint con la cantidad total
// contada de la referencia, concilia las series tocadas y marca el conteo como completado.
// Completar un conteo ya completado no hace nada.
func (uc *CountWorkflow) Complete(ctx context.Context, companyID, countID string) error {
	touched := 0
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		count, err := lockCount(ctx, repos, companyID, countID)
		if err != nil {
			return err
		}
		if count.Completed {
			return nil
		}
		lines, err := repos.Counts.ListLines(ctx, countID)
		if err != nil {
			return err
		}
		keys := newKeySet()
		for _, e := range countEntries(count, lines) {
			if err := uc.writer.Upsert(ctx, repos, e); err != nil {
				return err
			}
			keys.add(e.Key())
		}
		for _, k := range keys.keys() {
			if _, err := uc.reconciler.ReconcileIn(ctx, repos, k.WarehouseID, k.Reference); err != nil {
				return err
			}
		}
		now := uc.now()
		count.Completed = true
		count.CompletedAt = &now
		touched = keys.len()
		return repos.Counts.Update(ctx, count)
	})
	if err != nil {
		return err
	}
	uc.log.Info().
		Str("count_id", countID).
		Int("series", touched).
		Msg("conteo completado")
	return nil
}

// Delete elimina un conteo. Si estaba completado deshace sus movimientos línea a línea en orden
// inverso y concilia cada serie; un conteo abierto se descarta sin tocar el libro.
func (uc *CountWorkflow) Delete(ctx context.Context, companyID, countID string) error {
	return uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		count, err := lockCount(ctx, repos, companyID, countID)
		if err != nil {
			return err
		}
		lines, err := repos.Counts.ListLines(ctx, countID)
		if err != nil {
			return err
		}
		for i := len(lines) - 1; i >= 0; i-- {
			line := lines[i]
			if count.Completed {
				if err := uc.hooks.Fire(ctx, HookEvent{
					Point:        HookDeleteCountLine,
					WarehouseID:  count.WarehouseID,
					Reference:    line.Reference,
					ProductID:    line.ProductID,
					Quantity:     line.Quantity,
					DocumentType: entity.DocumentTypeCount,
					DocumentID:   countID,
				}); err != nil {
					return err
				}
				if err := uc.writer.Remove(ctx, repos, count.WarehouseID, line.Reference, entity.DocumentTypeCount, countID); err != nil {
					return err
				}
				if _, err := uc.reconciler.ReconcileIn(ctx, repos, count.WarehouseID, line.Reference); err != nil {
					return err
				}
			}
			if err := repos.Counts.DeleteLine(ctx, line.ID); err != nil {
				return err
			}
		}
		return repos.Counts.Delete(ctx, countID)
	})
}

func (uc *CountWorkflow) openCount(ctx context.Context, repos Repositories, companyID, countID string) (*entity.StockCount, error) {
	count, err := lockCount(ctx, repos, companyID, countID)
	if err != nil {
		return nil, err
	}
	if count.Completed {
		return nil, fmt.Errorf("%w: conteo %s", domain.ErrAlreadyCompleted, countID)
	}
	return count, nil
}

// lockCount bloquea la cabecera del conteo y verifica la empresa de su bodega.
func lockCount(ctx context.Context, repos Repositories, companyID, countID string) (*entity.StockCount, error) {
	count, err := repos.Counts.GetForUpdate(ctx, countID)
	if err != nil {
		return nil, err
	}
	if count == nil {
		return nil, fmt.Errorf("%w: conteo %s", domain.ErrNotFound, countID)
	}
	if _, err := loadWarehouse(ctx, repos, count.WarehouseID, companyID); err != nil {
		return nil, err
	}
	return count, nil
}

func countLine(ctx context.Context, repos Repositories, countID, lineID string) (*entity.StockCountLine, error) {
	line, err := repos.Counts.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.CountID != countID {
		return nil, fmt.Errorf("%w: línea %s", domain.ErrNotFound, lineID)
	}
	return line, nil
}

// countEntries checkpoints de un conteo: uno por línea en orden ascendente, con el total contado
// de la referencia y la fecha de la línea. Lo comparten Complete y la reconstrucción.
func countEntries(count *entity.StockCount, lines []*entity.StockCountLine) []Entry {
	totals := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		totals[l.Reference] = totals[l.Reference].Add(l.Quantity)
	}
	entries := make([]Entry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, Entry{
			WarehouseID:  count.WarehouseID,
			Reference:    l.Reference,
			ProductID:    l.ProductID,
			DocumentType: entity.DocumentTypeCount,
			DocumentID:   count.ID,
			Quantity:     totals[l.Reference],
			Mode:         ModeAbsoluteCheckpoint,
			MovedAt:      l.RecordedAt,
			Description:  "conteo " + count.ID,
		})
	}
	return entries
}

// loadWarehouse carga la bodega y verifica la empresa cuando companyID no está vacío.
func loadWarehouse(ctx context.Context, repos Repositories, warehouseID, companyID string) (*entity.Warehouse, error) {
	wh, err := repos.Warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, warehouseID)
	}
	if companyID != "" && wh.CompanyID != companyID {
		return nil, fmt.Errorf("%w: bodega %s de otra empresa", domain.ErrForbidden, warehouseID)
	}
	return wh, nil
}

// resolveProductID devuelve productID o el producto de la referencia.
func resolveProductID(ctx context.Context, repos Repositories, productID, reference string) (string, error) {
	if productID != "" {
		return productID, nil
	}
	p, err := repos.Products.GetByReference(ctx, reference)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("%w: producto con referencia %s", domain.ErrNotFound, reference)
	}
	return p.ID, nil
}
