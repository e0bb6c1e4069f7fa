package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.DocumentLineRepository = (*DocumentLineRepo)(nil)

// DocumentLineRepo lectura de stock_document_lines, mantenida por el sistema de documentos.
type DocumentLineRepo struct {
	q Querier
}

// NewDocumentLineRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentLineRepository(q Querier) *DocumentLineRepo {
	return &DocumentLineRepo{q: q}
}

// DocumentTypes tipos registrados en orden de reconstrucción.
func (r *DocumentLineRepo) DocumentTypes(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT document_type FROM stock_document_types ORDER BY position, document_type`)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer rows.Close()
	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// ListStockLines líneas con efecto de stock de documentos vigentes, orden descendente por fecha.
func (r *DocumentLineRepo) ListStockLines(ctx context.Context, documentType, productID string, limit, offset int) ([]*entity.DocumentLine, error) {
	query := `
		SELECT document_type, document_id, warehouse_id, reference, product_id, stock_effect, quantity, served, moved_at
		FROM stock_document_lines
		WHERE document_type = $1 AND affects_stock AND stock_effect <> 0
		  AND ($2 = '' OR product_id = $2)
		ORDER BY moved_at DESC, document_id, line_no
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, documentType, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.DocumentLine
	for rows.Next() {
		var l entity.DocumentLine
		if err := rows.Scan(
			&l.DocumentType, &l.DocumentID, &l.WarehouseID, &l.Reference, &l.ProductID,
			&l.StockEffect, &l.Quantity, &l.Served, &l.MovedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// SumOutstanding suma max(cantidad - servida, 0) de las líneas vigentes con el efecto dado.
func (r *DocumentLineRepo) SumOutstanding(ctx context.Context, warehouseID, reference string, stockEffect int) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(GREATEST(quantity - served, 0)), 0)
		FROM stock_document_lines
		WHERE warehouse_id = $1 AND reference = $2 AND stock_effect = $3 AND affects_stock`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, warehouseID, reference, stockEffect).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum outstanding: %w", err)
	}
	return total, nil
}
