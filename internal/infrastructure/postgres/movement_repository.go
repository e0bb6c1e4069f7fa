package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, warehouse_id, reference, product_id, document_type, document_id, quantity, balance, description, moved_at`

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// GetByDocument fila de (bodega, referencia, documento) o nil. Bloquea la fila dentro de la tx.
func (r *MovementRepo) GetByDocument(ctx context.Context, warehouseID, reference, documentType, documentID string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE warehouse_id = $1 AND reference = $2 AND document_type = $3 AND document_id = $4
		FOR UPDATE`
	m, err := scanMovement(r.q.QueryRow(ctx, query, warehouseID, reference, documentType, documentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement by document: %w", err)
	}
	return m, nil
}

// Save inserta (ID == 0) o actualiza la fila.
func (r *MovementRepo) Save(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == 0 {
		query := `
			INSERT INTO stock_movements (warehouse_id, reference, product_id, document_type, document_id, quantity, balance, description, moved_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`
		err := r.q.QueryRow(ctx, query,
			m.WarehouseID, m.Reference, m.ProductID, m.DocumentType, m.DocumentID,
			m.Quantity, m.Balance, m.Description, m.MovedAt,
		).Scan(&m.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: el documento %s %s ya tiene movimiento en la serie", domain.ErrPersistence, m.DocumentType, m.DocumentID)
			}
			return fmt.Errorf("insert movement: %w", err)
		}
		return nil
	}
	query := `
		UPDATE stock_movements
		SET product_id = $2, quantity = $3, balance = $4, description = $5, moved_at = $6
		WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, m.ID, m.ProductID, m.Quantity, m.Balance, m.Description, m.MovedAt); err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	return nil
}

// Delete borra una fila por ID.
func (r *MovementRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	return nil
}

// DeleteAll borra el libro completo o el de un producto y devuelve las series afectadas.
func (r *MovementRepo) DeleteAll(ctx context.Context, productID string) ([]entity.StockKey, error) {
	query := `
		WITH deleted AS (
			DELETE FROM stock_movements WHERE ($1 = '' OR product_id = $1)
			RETURNING warehouse_id, reference
		)
		SELECT DISTINCT warehouse_id, reference FROM deleted ORDER BY warehouse_id, reference`
	return r.queryKeys(ctx, "delete all movements", query, productID)
}

// SumBefore suma de la serie estrictamente antes de before, excluyendo un documento.
func (r *MovementRepo) SumBefore(ctx context.Context, warehouseID, reference string, before time.Time, excludeDocumentType, excludeDocumentID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_movements
		WHERE warehouse_id = $1 AND reference = $2 AND moved_at < $3
		  AND NOT ($4 <> '' AND document_type = $4 AND document_id = $5)`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, warehouseID, reference, before, excludeDocumentType, excludeDocumentID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum movements before: %w", err)
	}
	return total, nil
}

// Sum suma de toda la serie.
func (r *MovementRepo) Sum(ctx context.Context, warehouseID, reference string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM stock_movements WHERE warehouse_id = $1 AND reference = $2`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, warehouseID, reference).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum movements: %w", err)
	}
	return total, nil
}

// Last último movimiento por (fecha, id) o nil.
func (r *MovementRepo) Last(ctx context.Context, warehouseID, reference string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE warehouse_id = $1 AND reference = $2
		ORDER BY moved_at DESC, id DESC
		LIMIT 1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, warehouseID, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last movement: %w", err)
	}
	return m, nil
}

// ListSeriesFrom filas con fecha >= from en orden ascendente, bloqueadas para actualizar saldos.
func (r *MovementRepo) ListSeriesFrom(ctx context.Context, warehouseID, reference string, from time.Time) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE warehouse_id = $1 AND reference = $2 AND moved_at >= $3
		ORDER BY moved_at, id
		FOR UPDATE`
	return r.queryMovements(ctx, "list series", query, warehouseID, reference, from)
}

// ListKeys series con movimientos de un producto.
func (r *MovementRepo) ListKeys(ctx context.Context, productID string) ([]entity.StockKey, error) {
	query := `
		SELECT DISTINCT warehouse_id, reference FROM stock_movements
		WHERE product_id = $1 ORDER BY warehouse_id, reference`
	return r.queryKeys(ctx, "list movement keys", query, productID)
}

// ListByDocument filas generadas por un documento.
func (r *MovementRepo) ListByDocument(ctx context.Context, documentType, documentID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements WHERE document_type = $1 AND document_id = $2 ORDER BY id`
	return r.queryMovements(ctx, "list movements by document", query, documentType, documentID)
}

// List consulta filtrada y paginada en orden descendente (fecha, id).
func (r *MovementRepo) List(ctx context.Context, f entity.MovementFilter) ([]*entity.StockMovement, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.WarehouseID != "" {
		add("warehouse_id = $%d", f.WarehouseID)
	}
	if f.CompanyID != "" {
		add("warehouse_id IN (SELECT id FROM warehouses WHERE company_id = $%d)", f.CompanyID)
	}
	if f.Reference != "" {
		add("reference = $%d", f.Reference)
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.From != nil {
		add("moved_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("moved_at <= $%d", *f.To)
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY moved_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return r.queryMovements(ctx, "list movements", query, args...)
}

func (r *MovementRepo) queryMovements(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MovementRepo) queryKeys(ctx context.Context, op, query string, args ...any) ([]entity.StockKey, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var keys []entity.StockKey
	for rows.Next() {
		var k entity.StockKey
		if err := rows.Scan(&k.WarehouseID, &k.Reference); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	err := row.Scan(
		&m.ID, &m.WarehouseID, &m.Reference, &m.ProductID, &m.DocumentType, &m.DocumentID,
		&m.Quantity, &m.Balance, &m.Description, &m.MovedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
