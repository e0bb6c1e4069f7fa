package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `warehouse_id, reference, product_id, quantity, available, reserved, pending_receipt, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de una referencia en una bodega; en cero si no hay fila.
func (r *StockRepo) Get(ctx context.Context, warehouseID, reference string) (*entity.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM stock WHERE warehouse_id = $1 AND reference = $2`
	return r.get(ctx, "get stock", query, warehouseID, reference)
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, warehouseID, reference string) (*entity.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM stock WHERE warehouse_id = $1 AND reference = $2 FOR UPDATE`
	return r.get(ctx, "get stock for update", query, warehouseID, reference)
}

// Upsert inserta o actualiza la fila materializada.
func (r *StockRepo) Upsert(ctx context.Context, s *entity.Stock) error {
	query := `
		INSERT INTO stock (warehouse_id, reference, product_id, quantity, available, reserved, pending_receipt, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (warehouse_id, reference)
		DO UPDATE SET product_id = EXCLUDED.product_id, quantity = EXCLUDED.quantity,
			available = EXCLUDED.available, reserved = EXCLUDED.reserved,
			pending_receipt = EXCLUDED.pending_receipt, updated_at = now()`
	_, err := r.q.Exec(ctx, query,
		s.WarehouseID, s.Reference, s.ProductID, s.Quantity, s.Available, s.Reserved, s.PendingReceipt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// ListByReference stock de una referencia en todas las bodegas.
func (r *StockRepo) ListByReference(ctx context.Context, reference string) ([]*entity.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM stock WHERE reference = $1 ORDER BY warehouse_id`
	rows, err := r.q.Query(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Lock bloqueo consultivo de la serie hasta el fin de la transacción; vale aunque aún no exista fila.
func (r *StockRepo) Lock(ctx context.Context, warehouseID, reference string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))`, warehouseID, reference)
	if err != nil {
		return fmt.Errorf("lock stock series: %w", err)
	}
	return nil
}

func (r *StockRepo) get(ctx context.Context, op, query, warehouseID, reference string) (*entity.Stock, error) {
	s, err := scanStock(r.q.QueryRow(ctx, query, warehouseID, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{WarehouseID: warehouseID, Reference: reference}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func scanStock(row pgx.Row) (*entity.Stock, error) {
	var s entity.Stock
	err := row.Scan(&s.WarehouseID, &s.Reference, &s.ProductID, &s.Quantity, &s.Available, &s.Reserved, &s.PendingReceipt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
