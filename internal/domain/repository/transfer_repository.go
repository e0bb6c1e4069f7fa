package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TransferRepository persistencia de traslados entre bodegas (cabecera + líneas).
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.StockTransfer) error
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
	GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error)
	Update(ctx context.Context, transfer *entity.StockTransfer) error
	Delete(ctx context.Context, id string) error
	// ListCompleted traslados completados, orden ascendente por fecha de completado.
	ListCompleted(ctx context.Context) ([]*entity.StockTransfer, error)

	GetLine(ctx context.Context, lineID string) (*entity.StockTransferLine, error)
	GetLineByReference(ctx context.Context, transferID, reference string) (*entity.StockTransferLine, error)
	SaveLine(ctx context.Context, line *entity.StockTransferLine) error
	DeleteLine(ctx context.Context, lineID string) error
	// ListLines líneas del traslado en orden ascendente por RecordedAt.
	ListLines(ctx context.Context, transferID string) ([]*entity.StockTransferLine, error)
}
