package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// HookPoint punto de extensión donde se invocan los hooks registrados.
type HookPoint string

const (
	HookAddCountLine       HookPoint = "add_count_line"
	HookAddTransferLine    HookPoint = "add_transfer_line"
	HookTransferStock      HookPoint = "transfer_stock"
	HookUpdateStock        HookPoint = "update_stock"
	HookDeleteCountLine    HookPoint = "delete_count_line"
	HookDeleteTransferLine HookPoint = "delete_transfer_line"
)

// HookEvent datos que recibe un hook. DestinationWarehouseID solo aplica a traslados.
type HookEvent struct {
	Point                  HookPoint
	WarehouseID            string
	DestinationWarehouseID string
	Reference              string
	ProductID              string
	Quantity               decimal.Decimal
	DocumentType           string
	DocumentID             string
}

// StockHook extensión síncrona; un error veta la operación y aborta la transacción que la contiene.
type StockHook interface {
	Name() string
	OnStockEvent(ctx context.Context, ev HookEvent) error
}

// MovementEmitter recibe las entradas que una fuente adicional quiere escribir durante la reconstrucción.
type MovementEmitter func(ctx context.Context, entry Entry) error

// MovementSource fuente adicional de movimientos para la reconstrucción (paso de extensión).
type MovementSource interface {
	Name() string
	Replay(ctx context.Context, repos Repositories, productID string, emit MovementEmitter) error
}

// HookRegistry lista ordenada de hooks y fuentes, registrada al arrancar.
type HookRegistry struct {
	hooks   []StockHook
	sources []MovementSource
}

// NewHookRegistry construye un registro vacío.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{}
}

// Register añade un hook al final de la lista.
func (r *HookRegistry) Register(h StockHook) {
	r.hooks = append(r.hooks, h)
}

// RegisterSource añade una fuente de movimientos para la reconstrucción.
func (r *HookRegistry) RegisterSource(s MovementSource) {
	r.sources = append(r.sources, s)
}

// Sources fuentes registradas en orden de registro.
func (r *HookRegistry) Sources() []MovementSource {
	if r == nil {
		return nil
	}
	return r.sources
}

// Fire invoca los hooks en orden de registro; el primero que falla detiene la cadena.
func (r *HookRegistry) Fire(ctx context.Context, ev HookEvent) error {
	if r == nil {
		return nil
	}
	for _, h := range r.hooks {
		if err := h.OnStockEvent(ctx, ev); err != nil {
			return fmt.Errorf("%w: %s en %s: %v", domain.ErrHookVeto, h.Name(), ev.Point, err)
		}
	}
	return nil
}

// HookFunc adapta una función a StockHook.
type HookFunc struct {
	HookName string
	Fn       func(ctx context.Context, ev HookEvent) error
}

func (h HookFunc) Name() string { return h.HookName }

func (h HookFunc) OnStockEvent(ctx context.Context, ev HookEvent) error { return h.Fn(ctx, ev) }
