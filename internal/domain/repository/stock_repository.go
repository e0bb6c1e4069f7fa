package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar el stock materializado por bodega+referencia.
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get devuelve el stock o un registro en cero si no existe.
	Get(ctx context.Context, warehouseID, reference string) (*entity.Stock, error)
	// GetForUpdate igual que Get pero bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, warehouseID, reference string) (*entity.Stock, error)
	Upsert(ctx context.Context, stock *entity.Stock) error
	ListByReference(ctx context.Context, reference string) ([]*entity.Stock, error)
	// Lock serializa el acceso a la serie (bodega, referencia) hasta el fin de la transacción,
	// exista o no la fila materializada.
	Lock(ctx context.Context, warehouseID, reference string) error
}
