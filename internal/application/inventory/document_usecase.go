package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// DocumentEvents aplica al libro los cambios en líneas de documentos comerciales externos.
// Efecto ±1: escribe el movimiento en la transacción del llamador. Efecto ±2: solo cambia reservado o
// pendiente, así que la conciliación se difiere a la cola si hay una configurada.
type DocumentEvents struct {
	tx         TxRunner
	writer     *LedgerWriter
	reconciler *SnapshotReconciler
	queue      JobQueue
	log        *logger.Logger
}

// NewDocumentEvents construye el receptor de eventos. queue nil concilia en línea.
func NewDocumentEvents(tx TxRunner, writer *LedgerWriter, reconciler *SnapshotReconciler, queue JobQueue, log *logger.Logger) *DocumentEvents {
	return &DocumentEvents{tx: tx, writer: writer, reconciler: reconciler, queue: queue, log: log}
}

// Apply registra que la cantidad de la línea cambió en delta (la cantidad completa para una línea nueva,
// negativa al quitar una línea). Los productos sin control de stock se ignoran.
func (d *DocumentEvents) Apply(ctx context.Context, line entity.DocumentLine, delta decimal.Decimal) error {
	if line.DocumentType == "" || line.DocumentID == "" {
		return fmt.Errorf("%w: tipo e id de documento son obligatorios", domain.ErrInvalidInput)
	}
	if line.StockEffect == entity.StockEffectNone {
		return nil
	}
	var deferred []entity.StockKey
	err := d.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		tracked, err := newProductCache(repos).tracked(ctx, line.ProductID, line.Reference)
		if err != nil {
			return err
		}
		if !tracked {
			return nil
		}
		if line.IsImmediate() {
			signed := delta.Mul(decimal.NewFromInt(int64(line.StockEffect)))
			if err := d.writer.Upsert(ctx, repos, documentEntry(&line, signed)); err != nil {
				return err
			}
		}
		key := entity.StockKey{WarehouseID: line.WarehouseID, Reference: line.Reference}
		if d.queue != nil && !line.IsImmediate() {
			deferred = append(deferred, key)
			return nil
		}
		_, err = d.reconciler.ReconcileIn(ctx, repos, key.WarehouseID, key.Reference)
		return err
	})
	if err != nil {
		return err
	}
	return d.enqueueReconcile(ctx, line.ProductID, deferred)
}

// RemoveDocument borra todos los movimientos de un documento (anulado o eliminado) y concilia sus series.
func (d *DocumentEvents) RemoveDocument(ctx context.Context, documentType, documentID string) error {
	return d.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		rows, err := repos.Movements.ListByDocument(ctx, documentType, documentID)
		if err != nil {
			return err
		}
		for _, m := range rows {
			if err := d.writer.Remove(ctx, repos, m.WarehouseID, m.Reference, documentType, documentID); err != nil {
				return err
			}
			if _, err := d.reconciler.ReconcileIn(ctx, repos, m.WarehouseID, m.Reference); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DocumentEvents) enqueueReconcile(ctx context.Context, productID string, keys []entity.StockKey) error {
	for _, k := range keys {
		job := Job{Kind: JobReconcileProduct, ProductID: productID, WarehouseID: k.WarehouseID, Reference: k.Reference}
		if err := d.queue.Enqueue(ctx, job, 0); err != nil {
			return err
		}
	}
	return nil
}

// documentEntry movimiento delta de una línea de documento.
func documentEntry(l *entity.DocumentLine, signed decimal.Decimal) Entry {
	return Entry{
		WarehouseID:  l.WarehouseID,
		Reference:    l.Reference,
		ProductID:    l.ProductID,
		DocumentType: l.DocumentType,
		DocumentID:   l.DocumentID,
		Quantity:     signed,
		Mode:         ModeDelta,
		MovedAt:      l.MovedAt,
		Description:  l.DocumentType + " " + l.DocumentID,
	}
}
