package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementRepository define el puerto de persistencia del libro de movimientos.
type MovementRepository interface {
	// GetByDocument devuelve la fila de (bodega, referencia, documento) o nil si no existe.
	GetByDocument(ctx context.Context, warehouseID, reference, documentType, documentID string) (*entity.StockMovement, error)
	// Save inserta (ID == 0, asigna ID) o actualiza la fila completa.
	Save(ctx context.Context, movement *entity.StockMovement) error
	Delete(ctx context.Context, id int64) error
	// DeleteAll borra todo el libro (o solo un producto si productID != "") y devuelve las series afectadas.
	DeleteAll(ctx context.Context, productID string) ([]entity.StockKey, error)

	// SumBefore suma las cantidades de la serie estrictamente anteriores a before,
	// excluyendo la fila del documento indicado.
	SumBefore(ctx context.Context, warehouseID, reference string, before time.Time, excludeDocumentType, excludeDocumentID string) (decimal.Decimal, error)
	// Sum suma todas las cantidades de la serie.
	Sum(ctx context.Context, warehouseID, reference string) (decimal.Decimal, error)
	// Last devuelve el último movimiento de la serie por (fecha, id) o nil.
	Last(ctx context.Context, warehouseID, reference string) (*entity.StockMovement, error)
	// ListSeriesFrom devuelve las filas de la serie con fecha >= from, en orden ascendente (fecha, id).
	ListSeriesFrom(ctx context.Context, warehouseID, reference string, from time.Time) ([]*entity.StockMovement, error)
	// ListKeys series (bodega, referencia) con movimientos de un producto.
	ListKeys(ctx context.Context, productID string) ([]entity.StockKey, error)
	// ListByDocument devuelve las filas generadas por un documento.
	ListByDocument(ctx context.Context, documentType, documentID string) ([]*entity.StockMovement, error)
	// List consulta paginada, orden descendente (fecha, id).
	List(ctx context.Context, filter entity.MovementFilter) ([]*entity.StockMovement, error)
}
