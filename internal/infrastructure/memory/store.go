package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// data estado completo del almacén; se clona al abrir cada transacción.
type data struct {
	movements      map[int64]*entity.StockMovement
	nextMovementID int64
	stocks         map[entity.StockKey]*entity.Stock
	counts         map[string]*entity.StockCount
	countLines     map[string]*entity.StockCountLine
	transfers      map[string]*entity.StockTransfer
	transferLines  map[string]*entity.StockTransferLine
	warehouses     map[string]*entity.Warehouse
	products       map[string]*entity.Product
	documentTypes  []string
	documentLines  []*entity.DocumentLine
}

func newData() *data {
	return &data{
		movements:     make(map[int64]*entity.StockMovement),
		stocks:        make(map[entity.StockKey]*entity.Stock),
		counts:        make(map[string]*entity.StockCount),
		countLines:    make(map[string]*entity.StockCountLine),
		transfers:     make(map[string]*entity.StockTransfer),
		transferLines: make(map[string]*entity.StockTransferLine),
		warehouses:    make(map[string]*entity.Warehouse),
		products:      make(map[string]*entity.Product),
	}
}

func (d *data) clone() *data {
	c := newData()
	c.nextMovementID = d.nextMovementID
	for k, v := range d.movements {
		m := *v
		c.movements[k] = &m
	}
	for k, v := range d.stocks {
		s := *v
		c.stocks[k] = &s
	}
	for k, v := range d.counts {
		c.counts[k] = copyCount(v)
	}
	for k, v := range d.countLines {
		l := *v
		c.countLines[k] = &l
	}
	for k, v := range d.transfers {
		c.transfers[k] = copyTransfer(v)
	}
	for k, v := range d.transferLines {
		l := *v
		c.transferLines[k] = &l
	}
	for k, v := range d.warehouses {
		w := *v
		c.warehouses[k] = &w
	}
	for k, v := range d.products {
		p := *v
		c.products[k] = &p
	}
	c.documentTypes = append([]string(nil), d.documentTypes...)
	for _, l := range d.documentLines {
		cp := *l
		c.documentLines = append(c.documentLines, &cp)
	}
	return c
}

// Store almacén transaccional en memoria. Una transacción toma el mutex completo y trabaja sobre el
// estado vivo; si fn falla o entra en pánico se restaura la copia tomada al empezar.
type Store struct {
	mu sync.Mutex
	d  *data
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{d: newData()}
}

type txKey struct{}

var _ inventory.TxRunner = (*Store)(nil)

// Run implementa inventory.TxRunner. Una llamada anidada (ctx de una transacción abierta) reutiliza la
// transacción en curso sin tomar el mutex ni confirmar.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repositories) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(ctx, s.repos())
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	defer func() {
		if p := recover(); p != nil {
			s.d = snapshot
			panic(p)
		}
	}()
	txCtx := context.WithValue(ctx, txKey{}, s)
	if err := fn(txCtx, s.repos()); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

func (s *Store) repos() inventory.Repositories {
	return inventory.Repositories{
		Movements:  &movementRepo{s: s},
		Stocks:     &stockRepo{s: s},
		Counts:     &countRepo{s: s},
		Transfers:  &transferRepo{s: s},
		Warehouses: &warehouseRepo{s: s},
		Products:   &productRepo{s: s},
		Documents:  &documentRepo{s: s},
	}
}

// ─── Datos maestros y documentos externos (carga para desarrollo y tests) ─────

// PutWarehouse crea o reemplaza una bodega.
func (s *Store) PutWarehouse(w entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.warehouses[w.ID] = &w
}

// PutProduct crea o reemplaza un producto.
func (s *Store) PutProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.products[p.ID] = &p
}

// PutDocumentLine registra una línea de documento externo; el tipo se añade a la lista de tipos.
func (s *Store) PutDocumentLine(l entity.DocumentLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := false
	for _, t := range s.d.documentTypes {
		if t == l.DocumentType {
			known = true
			break
		}
	}
	if !known {
		s.d.documentTypes = append(s.d.documentTypes, l.DocumentType)
	}
	s.d.documentLines = append(s.d.documentLines, &l)
}

// RemoveDocument quita todas las líneas de un documento externo.
func (s *Store) RemoveDocument(documentType, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.d.documentLines[:0]
	for _, l := range s.d.documentLines {
		if l.DocumentType == documentType && l.DocumentID == documentID {
			continue
		}
		kept = append(kept, l)
	}
	s.d.documentLines = kept
}

// Series devuelve una copia de la serie (bodega, referencia) en orden ascendente.
func (s *Store) Series(warehouseID, reference string) []entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range s.d.movements {
		if m.WarehouseID == warehouseID && m.Reference == reference {
			out = append(out, *m)
		}
	}
	sortAsc(out)
	return out
}

// AllMovements copia de todo el libro ordenado por (bodega, referencia, fecha, id).
func (s *Store) AllMovements() []entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.StockMovement, 0, len(s.d.movements))
	for _, m := range s.d.movements {
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		if a.Reference != b.Reference {
			return a.Reference < b.Reference
		}
		return movementLess(&a, &b)
	})
	return out
}

// OverwriteBalance cambia el saldo guardado de un movimiento sin recalcular la serie
// (simula una fila dañada por una escritura externa).
func (s *Store) OverwriteBalance(id int64, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.d.movements[id]; ok {
		m.Balance = balance
	}
}

func copyCount(c *entity.StockCount) *entity.StockCount {
	cp := *c
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func copyTransfer(t *entity.StockTransfer) *entity.StockTransfer {
	cp := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

func movementLess(a, b *entity.StockMovement) bool {
	if !a.MovedAt.Equal(b.MovedAt) {
		return a.MovedAt.Before(b.MovedAt)
	}
	return a.ID < b.ID
}

func sortAsc(ms []entity.StockMovement) {
	sort.SliceStable(ms, func(i, j int) bool { return movementLess(&ms[i], &ms[j]) })
}
