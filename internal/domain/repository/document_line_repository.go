package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// DocumentLineRepository fuente externa de líneas de documentos comerciales que afectan stock.
// La implementación la provee el sistema de documentos; el motor nunca escribe aquí.
type DocumentLineRepository interface {
	// DocumentTypes tipos de documento que pueden afectar stock, en el orden de reconstrucción.
	DocumentTypes(ctx context.Context) ([]string, error)
	// ListStockLines líneas con efecto de stock de un tipo de documento, orden descendente por fecha,
	// filtradas opcionalmente por producto. Solo devuelve documentos en estados que afectan stock.
	ListStockLines(ctx context.Context, documentType, productID string, limit, offset int) ([]*entity.DocumentLine, error)
	// SumOutstanding suma max(cantidad - servida, 0) de las líneas abiertas con el efecto dado (±2).
	SumOutstanding(ctx context.Context, warehouseID, reference string, stockEffect int) (decimal.Decimal, error)
}
