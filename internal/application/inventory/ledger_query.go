package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// DocumentRef referencia legible al documento que originó un movimiento.
type DocumentRef struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// DocumentResolver construye la referencia legible de un tipo de documento.
type DocumentResolver func(documentID string) DocumentRef

// DocumentTypeRegistry mapa tipo de documento -> resolver, registrado al arrancar.
type DocumentTypeRegistry struct {
	mu        sync.RWMutex
	resolvers map[string]DocumentResolver
}

// NewDocumentTypeRegistry registro con los tipos propios del motor (conteos y traslados).
func NewDocumentTypeRegistry() *DocumentTypeRegistry {
	r := &DocumentTypeRegistry{resolvers: make(map[string]DocumentResolver)}
	r.Register(entity.DocumentTypeCount, func(id string) DocumentRef {
		return DocumentRef{Type: entity.DocumentTypeCount, ID: id, Title: "Conteo " + id, URL: "/api/counts/" + id}
	})
	r.Register(entity.DocumentTypeTransfer, func(id string) DocumentRef {
		return DocumentRef{Type: entity.DocumentTypeTransfer, ID: id, Title: "Traslado " + id, URL: "/api/transfers/" + id}
	})
	return r
}

// Register asocia (o reemplaza) el resolver de un tipo.
func (r *DocumentTypeRegistry) Register(documentType string, fn DocumentResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[documentType] = fn
}

// Resolve devuelve la referencia del documento; tipos desconocidos usan tipo + id como título.
func (r *DocumentTypeRegistry) Resolve(documentType, documentID string) *DocumentRef {
	if documentType == "" || documentID == "" {
		return nil
	}
	r.mu.RLock()
	fn, ok := r.resolvers[documentType]
	r.mu.RUnlock()
	if !ok {
		return &DocumentRef{Type: documentType, ID: documentID, Title: documentType + " " + documentID}
	}
	ref := fn(documentID)
	return &ref
}

// MovementView movimiento con su documento resuelto.
type MovementView struct {
	Movement *entity.StockMovement
	Document *DocumentRef
}

// LedgerQuery consultas de solo lectura sobre el libro y el stock materializado.
type LedgerQuery struct {
	tx       TxRunner
	registry *DocumentTypeRegistry
}

// NewLedgerQuery construye el servicio de consulta.
func NewLedgerQuery(tx TxRunner, registry *DocumentTypeRegistry) *LedgerQuery {
	if registry == nil {
		registry = NewDocumentTypeRegistry()
	}
	return &LedgerQuery{tx: tx, registry: registry}
}

// MaxMovementPage límite de filas por consulta.
const MaxMovementPage = 500

// Movements lista movimientos (orden descendente) con su documento resuelto. filter.CompanyID limita el
// listado a las bodegas de esa empresa.
func (q *LedgerQuery) Movements(ctx context.Context, filter entity.MovementFilter) ([]MovementView, error) {
	if filter.Limit <= 0 || filter.Limit > MaxMovementPage {
		filter.Limit = MaxMovementPage
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: offset negativo", domain.ErrInvalidInput)
	}
	var rows []*entity.StockMovement
	err := q.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		if filter.WarehouseID != "" {
			if _, err := loadWarehouse(ctx, repos, filter.WarehouseID, filter.CompanyID); err != nil {
				return err
			}
		}
		var err error
		rows, err = repos.Movements.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]MovementView, 0, len(rows))
	for _, m := range rows {
		out = append(out, MovementView{Movement: m, Document: q.registry.Resolve(m.DocumentType, m.DocumentID)})
	}
	return out, nil
}

// Stock devuelve el stock materializado (en cero si no existe fila).
func (q *LedgerQuery) Stock(ctx context.Context, companyID, warehouseID, reference string) (*entity.Stock, error) {
	var out *entity.Stock
	err := q.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := loadWarehouse(ctx, repos, warehouseID, companyID); err != nil {
			return err
		}
		s, err := repos.Stocks.Get(ctx, warehouseID, reference)
		out = s
		return err
	})
	return out, err
}

// StockByReference stock de una referencia en todas las bodegas de la empresa (todas si companyID está vacío).
func (q *LedgerQuery) StockByReference(ctx context.Context, companyID, reference string) ([]*entity.Stock, error) {
	var out []*entity.Stock
	err := q.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		rows, err := repos.Stocks.ListByReference(ctx, reference)
		if err != nil {
			return err
		}
		if companyID == "" {
			out = rows
			return nil
		}
		owners := make(map[string]string)
		for _, s := range rows {
			owner, ok := owners[s.WarehouseID]
			if !ok {
				wh, err := repos.Warehouses.GetByID(ctx, s.WarehouseID)
				if err != nil {
					return err
				}
				if wh != nil {
					owner = wh.CompanyID
				}
				owners[s.WarehouseID] = owner
			}
			if owner == companyID {
				out = append(out, s)
			}
		}
		return nil
	})
	return out, err
}

// AuthorizeWarehouse verifica que la bodega exista y sea de la empresa.
func (q *LedgerQuery) AuthorizeWarehouse(ctx context.Context, companyID, warehouseID string) error {
	return q.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		_, err := loadWarehouse(ctx, repos, warehouseID, companyID)
		return err
	})
}

// AuthorizeProduct verifica que el producto exista y sea de la empresa.
func (q *LedgerQuery) AuthorizeProduct(ctx context.Context, companyID, productID string) error {
	return q.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		p, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
		}
		if companyID != "" && p.CompanyID != companyID {
			return fmt.Errorf("%w: producto %s de otra empresa", domain.ErrForbidden, productID)
		}
		return nil
	})
}

// AuthorizeDocument verifica que todas las series tocadas por el documento estén en bodegas de la empresa.
func (q *LedgerQuery) AuthorizeDocument(ctx context.Context, companyID, documentType, documentID string) error {
	return q.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		rows, err := repos.Movements.ListByDocument(ctx, documentType, documentID)
		if err != nil {
			return err
		}
		seen := make(map[string]struct{})
		for _, m := range rows {
			if _, ok := seen[m.WarehouseID]; ok {
				continue
			}
			seen[m.WarehouseID] = struct{}{}
			if _, err := loadWarehouse(ctx, repos, m.WarehouseID, companyID); err != nil {
				return err
			}
		}
		return nil
	})
}
