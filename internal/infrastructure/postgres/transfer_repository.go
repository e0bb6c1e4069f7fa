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

var _ repository.TransferRepository = (*TransferRepo)(nil)

const (
	transferColumns     = `id, origin_warehouse_id, destination_warehouse_id, completed_at, completed, note, user_id, created_at`
	transferLineColumns = `id, transfer_id, reference, product_id, quantity, recorded_at, user_id`
)

// TransferRepo traslados entre bodegas sobre PostgreSQL (usable con pool o tx).
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// Create persiste la cabecera.
func (r *TransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		INSERT INTO stock_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.OriginWarehouseID, t.DestinationWarehouseID, t.CompletedAt, t.Completed, t.Note, t.UserID, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera o nil.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id)
}

// GetForUpdate obtiene y bloquea la cabecera.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1 FOR UPDATE`, id)
}

// Update guarda bodegas, estado y nota.
func (r *TransferRepo) Update(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		UPDATE stock_transfers
		SET origin_warehouse_id = $2, destination_warehouse_id = $3, completed_at = $4, completed = $5, note = $6
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, t.ID, t.OriginWarehouseID, t.DestinationWarehouseID, t.CompletedAt, t.Completed, t.Note)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	return nil
}

// Delete borra la cabecera (las líneas caen en cascada).
func (r *TransferRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_transfers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete transfer: %w", err)
	}
	return nil
}

// ListCompleted traslados completados por fecha de completado.
func (r *TransferRepo) ListCompleted(ctx context.Context) ([]*entity.StockTransfer, error) {
	rows, err := r.q.Query(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE completed ORDER BY completed_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list completed transfers: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// GetLine obtiene una línea o nil.
func (r *TransferRepo) GetLine(ctx context.Context, lineID string) (*entity.StockTransferLine, error) {
	return r.getLine(ctx, `SELECT `+transferLineColumns+` FROM stock_transfer_lines WHERE id = $1`, lineID)
}

// GetLineByReference línea de una referencia dentro del traslado o nil.
func (r *TransferRepo) GetLineByReference(ctx context.Context, transferID, reference string) (*entity.StockTransferLine, error) {
	return r.getLine(ctx, `SELECT `+transferLineColumns+` FROM stock_transfer_lines WHERE transfer_id = $1 AND reference = $2`, transferID, reference)
}

// SaveLine inserta o actualiza una línea.
func (r *TransferRepo) SaveLine(ctx context.Context, l *entity.StockTransferLine) error {
	query := `
		INSERT INTO stock_transfer_lines (` + transferLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity, recorded_at = EXCLUDED.recorded_at, user_id = EXCLUDED.user_id`
	_, err := r.q.Exec(ctx, query, l.ID, l.TransferID, l.Reference, l.ProductID, l.Quantity, l.RecordedAt, l.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe una línea para la referencia %s", domain.ErrInvalidInput, l.Reference)
		}
		return fmt.Errorf("save transfer line: %w", err)
	}
	return nil
}

// DeleteLine borra una línea.
func (r *TransferRepo) DeleteLine(ctx context.Context, lineID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_transfer_lines WHERE id = $1`, lineID); err != nil {
		return fmt.Errorf("delete transfer line: %w", err)
	}
	return nil
}

// ListLines líneas en orden ascendente de registro.
func (r *TransferRepo) ListLines(ctx context.Context, transferID string) ([]*entity.StockTransferLine, error) {
	query := `SELECT ` + transferLineColumns + ` FROM stock_transfer_lines WHERE transfer_id = $1 ORDER BY recorded_at, id`
	rows, err := r.q.Query(ctx, query, transferID)
	if err != nil {
		return nil, fmt.Errorf("list transfer lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockTransferLine
	for rows.Next() {
		l, err := scanTransferLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer line: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *TransferRepo) get(ctx context.Context, query, id string) (*entity.StockTransfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

func (r *TransferRepo) getLine(ctx context.Context, query string, args ...any) (*entity.StockTransferLine, error) {
	l, err := scanTransferLine(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer line: %w", err)
	}
	return l, nil
}

func scanTransfer(row pgx.Row) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	err := row.Scan(&t.ID, &t.OriginWarehouseID, &t.DestinationWarehouseID, &t.CompletedAt, &t.Completed, &t.Note, &t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTransferLine(row pgx.Row) (*entity.StockTransferLine, error) {
	var l entity.StockTransferLine
	if err := row.Scan(&l.ID, &l.TransferID, &l.Reference, &l.ProductID, &l.Quantity, &l.RecordedAt, &l.UserID); err != nil {
		return nil, err
	}
	return &l, nil
}
