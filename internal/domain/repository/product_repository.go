package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductRepository maestro de productos (solo lectura para el motor).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByReference(ctx context.Context, reference string) (*entity.Product, error)
	// ListTrackedIDs devuelve los IDs de productos con control de stock (para reconstrucciones por producto).
	ListTrackedIDs(ctx context.Context) ([]string, error)
}
