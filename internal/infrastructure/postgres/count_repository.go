package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.CountRepository = (*CountRepo)(nil)

const (
	countColumns     = `id, warehouse_id, started_at, completed_at, completed, note, user_id`
	countLineColumns = `id, count_id, reference, product_id, quantity, recorded_at, user_id`
)

// CountRepo conteos de inventario sobre PostgreSQL (usable con pool o tx).
type CountRepo struct {
	q Querier
}

// NewCountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCountRepository(q Querier) *CountRepo {
	return &CountRepo{q: q}
}

// Create persiste la cabecera.
func (r *CountRepo) Create(ctx context.Context, c *entity.StockCount) error {
	query := `
		INSERT INTO stock_counts (` + countColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, c.ID, c.WarehouseID, c.StartedAt, c.CompletedAt, c.Completed, c.Note, c.UserID)
	if err != nil {
		return fmt.Errorf("insert count: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera o nil.
func (r *CountRepo) GetByID(ctx context.Context, id string) (*entity.StockCount, error) {
	return r.get(ctx, `SELECT `+countColumns+` FROM stock_counts WHERE id = $1`, id)
}

// GetForUpdate obtiene y bloquea la cabecera.
func (r *CountRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockCount, error) {
	return r.get(ctx, `SELECT `+countColumns+` FROM stock_counts WHERE id = $1 FOR UPDATE`, id)
}

// Update guarda estado y nota.
func (r *CountRepo) Update(ctx context.Context, c *entity.StockCount) error {
	query := `UPDATE stock_counts SET completed_at = $2, completed = $3, note = $4 WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, c.ID, c.CompletedAt, c.Completed, c.Note); err != nil {
		return fmt.Errorf("update count: %w", err)
	}
	return nil
}

// Delete borra la cabecera (las líneas caen en cascada).
func (r *CountRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_counts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete count: %w", err)
	}
	return nil
}

// ListCompleted conteos completados por fecha de completado.
func (r *CountRepo) ListCompleted(ctx context.Context) ([]*entity.StockCount, error) {
	rows, err := r.q.Query(ctx, `SELECT `+countColumns+` FROM stock_counts WHERE completed ORDER BY completed_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list completed counts: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockCount
	for rows.Next() {
		c, err := scanCount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// GetLine obtiene una línea o nil.
func (r *CountRepo) GetLine(ctx context.Context, lineID string) (*entity.StockCountLine, error) {
	return r.getLine(ctx, `SELECT `+countLineColumns+` FROM stock_count_lines WHERE id = $1`, lineID)
}

// GetLineByReference línea de una referencia dentro del conteo o nil.
func (r *CountRepo) GetLineByReference(ctx context.Context, countID, reference string) (*entity.StockCountLine, error) {
	return r.getLine(ctx, `SELECT `+countLineColumns+` FROM stock_count_lines WHERE count_id = $1 AND reference = $2`, countID, reference)
}

// SaveLine inserta o actualiza una línea.
func (r *CountRepo) SaveLine(ctx context.Context, l *entity.StockCountLine) error {
	query := `
		INSERT INTO stock_count_lines (` + countLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity, recorded_at = EXCLUDED.recorded_at, user_id = EXCLUDED.user_id`
	_, err := r.q.Exec(ctx, query, l.ID, l.CountID, l.Reference, l.ProductID, l.Quantity, l.RecordedAt, l.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe una línea para la referencia %s", domain.ErrInvalidInput, l.Reference)
		}
		return fmt.Errorf("save count line: %w", err)
	}
	return nil
}

// DeleteLine borra una línea.
func (r *CountRepo) DeleteLine(ctx context.Context, lineID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_count_lines WHERE id = $1`, lineID); err != nil {
		return fmt.Errorf("delete count line: %w", err)
	}
	return nil
}

// ListLines líneas en orden ascendente de registro.
func (r *CountRepo) ListLines(ctx context.Context, countID string) ([]*entity.StockCountLine, error) {
	query := `SELECT ` + countLineColumns + ` FROM stock_count_lines WHERE count_id = $1 ORDER BY recorded_at, id`
	rows, err := r.q.Query(ctx, query, countID)
	if err != nil {
		return nil, fmt.Errorf("list count lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockCountLine
	for rows.Next() {
		l, err := scanCountLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan count line: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *CountRepo) get(ctx context.Context, query, id string) (*entity.StockCount, error) {
	c, err := scanCount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get count: %w", err)
	}
	return c, nil
}

func (r *CountRepo) getLine(ctx context.Context, query string, args ...any) (*entity.StockCountLine, error) {
	l, err := scanCountLine(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get count line: %w", err)
	}
	return l, nil
}

func scanCount(row pgx.Row) (*entity.StockCount, error) {
	var c entity.StockCount
	if err := row.Scan(&c.ID, &c.WarehouseID, &c.StartedAt, &c.CompletedAt, &c.Completed, &c.Note, &c.UserID); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCountLine(row pgx.Row) (*entity.StockCountLine, error) {
	var l entity.StockCountLine
	if err := row.Scan(&l.ID, &l.CountID, &l.Reference, &l.ProductID, &l.Quantity, &l.RecordedAt, &l.UserID); err != nil {
		return nil, err
	}
	return &l, nil
}
