package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// SnapshotReconciler recalcula la fila materializada de stock a partir del libro y de las
// líneas abiertas de pedidos.
type SnapshotReconciler struct {
	tx      TxRunner
	hooks   *HookRegistry
	alerter InconsistencyAlerter
	log     *logger.Logger
	now     Clock
}

// NewSnapshotReconciler construye el conciliador. alerter puede ser nil (solo log).
func NewSnapshotReconciler(tx TxRunner, hooks *HookRegistry, alerter InconsistencyAlerter, log *logger.Logger) *SnapshotReconciler {
	if alerter == nil {
		alerter = NewLogAlerter(log)
	}
	return &SnapshotReconciler{tx: tx, hooks: hooks, alerter: alerter, log: log, now: time.Now}
}

// Reconcile recalcula el stock de (bodega, referencia) en su propia transacción.
func (r *SnapshotReconciler) Reconcile(ctx context.Context, warehouseID, reference string) (*entity.Stock, error) {
	if warehouseID == "" || reference == "" {
		return nil, fmt.Errorf("%w: bodega y referencia son obligatorias", domain.ErrInvalidInput)
	}
	var out *entity.Stock
	err := r.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		s, err := r.ReconcileIn(ctx, repos, warehouseID, reference)
		out = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReconcileProduct concilia todas las series de un producto (las que tienen movimientos y las que
// tienen fila materializada). Si warehouseID no está vacío, solo esa bodega.
func (r *SnapshotReconciler) ReconcileProduct(ctx context.Context, productID, warehouseID string) (int, error) {
	count := 0
	err := r.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		product, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
		}
		keys, err := repos.Movements.ListKeys(ctx, productID)
		if err != nil {
			return err
		}
		stocks, err := repos.Stocks.ListByReference(ctx, product.Reference)
		if err != nil {
			return err
		}
		set := newKeySet()
		set.add(keys...)
		for _, s := range stocks {
			set.add(s.Key())
		}
		if warehouseID != "" {
			// Pedidos abiertos sin movimientos ni fila previa
			set.add(entity.StockKey{WarehouseID: warehouseID, Reference: product.Reference})
		}
		for _, k := range set.keys() {
			if warehouseID != "" && k.WarehouseID != warehouseID {
				continue
			}
			if _, err := r.ReconcileIn(ctx, repos, k.WarehouseID, k.Reference); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// ReconcileIn recalcula el stock dentro de una transacción existente.
// Existencias: saldo del último movimiento; si no coincide con la suma de la serie se confía en el saldo
// y se dispara una alerta. Reservado y pendiente salen de las líneas abiertas (efecto -2 / +2).
func (r *SnapshotReconciler) ReconcileIn(ctx context.Context, repos Repositories, warehouseID, reference string) (*entity.Stock, error) {
	last, err := repos.Movements.Last(ctx, warehouseID, reference)
	if err != nil {
		return nil, err
	}
	sum, err := repos.Movements.Sum(ctx, warehouseID, reference)
	if err != nil {
		return nil, err
	}
	quantity := sum
	if last != nil {
		quantity = last.Balance
		if !last.Balance.Equal(sum) {
			r.alerter.Alert(ctx, Inconsistency{
				WarehouseID:    warehouseID,
				Reference:      reference,
				LastMovementID: last.ID,
				LastBalance:    last.Balance,
				LedgerSum:      sum,
				DetectedAt:     r.now(),
			})
		}
	}

	reserved, err := repos.Documents.SumOutstanding(ctx, warehouseID, reference, entity.StockEffectReserve)
	if err != nil {
		return nil, err
	}
	pending, err := repos.Documents.SumOutstanding(ctx, warehouseID, reference, entity.StockEffectPending)
	if err != nil {
		return nil, err
	}

	stock, err := repos.Stocks.GetForUpdate(ctx, warehouseID, reference)
	if err != nil {
		return nil, err
	}
	if stock.ProductID == "" {
		if last != nil {
			stock.ProductID = last.ProductID
		} else if p, err := repos.Products.GetByReference(ctx, reference); err != nil {
			return nil, err
		} else if p != nil {
			stock.ProductID = p.ID
		}
	}
	stock.Quantity = quantity
	stock.Reserved = reserved
	stock.PendingReceipt = pending
	stock.RecalculateAvailable()
	stock.UpdatedAt = r.now()

	if err := r.hooks.Fire(ctx, HookEvent{
		Point:       HookUpdateStock,
		WarehouseID: warehouseID,
		Reference:   reference,
		ProductID:   stock.ProductID,
		Quantity:    stock.Quantity,
	}); err != nil {
		return nil, err
	}
	if err := repos.Stocks.Upsert(ctx, stock); err != nil {
		return nil, err
	}
	return stock, nil
}

// keySet conjunto ordenado por inserción de series.
type keySet struct {
	seen  map[entity.StockKey]struct{}
	order []entity.StockKey
}

func newKeySet() *keySet {
	return &keySet{seen: make(map[entity.StockKey]struct{})}
}

func (s *keySet) add(keys ...entity.StockKey) {
	for _, k := range keys {
		if _, ok := s.seen[k]; ok {
			continue
		}
		s.seen[k] = struct{}{}
		s.order = append(s.order, k)
	}
}

func (s *keySet) keys() []entity.StockKey {
	return s.order
}

func (s *keySet) len() int {
	return len(s.order)
}
