package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CountRepository persistencia de conteos de inventario (cabecera + líneas).
type CountRepository interface {
	Create(ctx context.Context, count *entity.StockCount) error
	GetByID(ctx context.Context, id string) (*entity.StockCount, error)
	// GetForUpdate bloquea la cabecera para serializar Complete/Delete concurrentes.
	GetForUpdate(ctx context.Context, id string) (*entity.StockCount, error)
	Update(ctx context.Context, count *entity.StockCount) error
	Delete(ctx context.Context, id string) error
	// ListCompleted conteos completados, orden ascendente por fecha de completado.
	ListCompleted(ctx context.Context) ([]*entity.StockCount, error)

	GetLine(ctx context.Context, lineID string) (*entity.StockCountLine, error)
	GetLineByReference(ctx context.Context, countID, reference string) (*entity.StockCountLine, error)
	SaveLine(ctx context.Context, line *entity.StockCountLine) error
	DeleteLine(ctx context.Context, lineID string) error
	// ListLines líneas del conteo en orden ascendente por RecordedAt.
	ListLines(ctx context.Context, countID string) ([]*entity.StockCountLine, error)
}
