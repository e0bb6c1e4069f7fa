package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Los repositorios solo se usan dentro de Store.Run: el mutex ya está tomado.
// Devuelven copias para que un cambio sin Save no altere el estado.

// ─── Movimientos ─────────────────────────────────────────────────────────────

type movementRepo struct{ s *Store }

func (r *movementRepo) GetByDocument(_ context.Context, warehouseID, reference, documentType, documentID string) (*entity.StockMovement, error) {
	for _, m := range r.s.d.movements {
		if m.WarehouseID == warehouseID && m.Reference == reference &&
			m.DocumentType == documentType && m.DocumentID == documentID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *movementRepo) Save(_ context.Context, movement *entity.StockMovement) error {
	d := r.s.d
	if movement.ID == 0 {
		d.nextMovementID++
		movement.ID = d.nextMovementID
	}
	cp := *movement
	d.movements[movement.ID] = &cp
	return nil
}

func (r *movementRepo) Delete(_ context.Context, id int64) error {
	delete(r.s.d.movements, id)
	return nil
}

func (r *movementRepo) DeleteAll(_ context.Context, productID string) ([]entity.StockKey, error) {
	seen := make(map[entity.StockKey]struct{})
	var keys []entity.StockKey
	for id, m := range r.s.d.movements {
		if productID != "" && m.ProductID != productID {
			continue
		}
		k := entity.StockKey{WarehouseID: m.WarehouseID, Reference: m.Reference}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		delete(r.s.d.movements, id)
	}
	sortKeys(keys)
	return keys, nil
}

func (r *movementRepo) SumBefore(_ context.Context, warehouseID, reference string, before time.Time, excludeDocumentType, excludeDocumentID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, m := range r.series(warehouseID, reference) {
		if !m.MovedAt.Before(before) {
			continue
		}
		if excludeDocumentType != "" && m.DocumentType == excludeDocumentType && m.DocumentID == excludeDocumentID {
			continue
		}
		total = total.Add(m.Quantity)
	}
	return total, nil
}

func (r *movementRepo) Sum(_ context.Context, warehouseID, reference string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, m := range r.series(warehouseID, reference) {
		total = total.Add(m.Quantity)
	}
	return total, nil
}

func (r *movementRepo) Last(_ context.Context, warehouseID, reference string) (*entity.StockMovement, error) {
	var last *entity.StockMovement
	for _, m := range r.series(warehouseID, reference) {
		if last == nil || movementLess(last, m) {
			last = m
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (r *movementRepo) ListSeriesFrom(_ context.Context, warehouseID, reference string, from time.Time) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.series(warehouseID, reference) {
		if m.MovedAt.Before(from) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return movementLess(out[i], out[j]) })
	return out, nil
}

func (r *movementRepo) ListKeys(_ context.Context, productID string) ([]entity.StockKey, error) {
	seen := make(map[entity.StockKey]struct{})
	var keys []entity.StockKey
	for _, m := range r.s.d.movements {
		if m.ProductID != productID {
			continue
		}
		k := entity.StockKey{WarehouseID: m.WarehouseID, Reference: m.Reference}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys, nil
}

func (r *movementRepo) ListByDocument(_ context.Context, documentType, documentID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.d.movements {
		if m.DocumentType == documentType && m.DocumentID == documentID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *movementRepo) List(_ context.Context, f entity.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.d.movements {
		if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
			continue
		}
		if f.CompanyID != "" {
			wh, ok := r.s.d.warehouses[m.WarehouseID]
			if !ok || wh.CompanyID != f.CompanyID {
				continue
			}
		}
		if f.Reference != "" && m.Reference != f.Reference {
			continue
		}
		if f.ProductID != "" && m.ProductID != f.ProductID {
			continue
		}
		if f.From != nil && m.MovedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && m.MovedAt.After(*f.To) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return movementLess(out[j], out[i]) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *movementRepo) series(warehouseID, reference string) []*entity.StockMovement {
	var out []*entity.StockMovement
	for _, m := range r.s.d.movements {
		if m.WarehouseID == warehouseID && m.Reference == reference {
			out = append(out, m)
		}
	}
	return out
}

// ─── Stock materializado ─────────────────────────────────────────────────────

type stockRepo struct{ s *Store }

func (r *stockRepo) Get(_ context.Context, warehouseID, reference string) (*entity.Stock, error) {
	if st, ok := r.s.d.stocks[entity.StockKey{WarehouseID: warehouseID, Reference: reference}]; ok {
		cp := *st
		return &cp, nil
	}
	return &entity.Stock{WarehouseID: warehouseID, Reference: reference}, nil
}

func (r *stockRepo) GetForUpdate(ctx context.Context, warehouseID, reference string) (*entity.Stock, error) {
	return r.Get(ctx, warehouseID, reference)
}

func (r *stockRepo) Upsert(_ context.Context, stock *entity.Stock) error {
	cp := *stock
	r.s.d.stocks[stock.Key()] = &cp
	return nil
}

func (r *stockRepo) ListByReference(_ context.Context, reference string) ([]*entity.Stock, error) {
	var out []*entity.Stock
	for _, st := range r.s.d.stocks {
		if st.Reference == reference {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

// Lock no hace nada: la transacción en memoria ya es exclusiva.
func (r *stockRepo) Lock(context.Context, string, string) error {
	return nil
}

// ─── Conteos ─────────────────────────────────────────────────────────────────

type countRepo struct{ s *Store }

func (r *countRepo) Create(_ context.Context, count *entity.StockCount) error {
	r.s.d.counts[count.ID] = copyCount(count)
	return nil
}

func (r *countRepo) GetByID(_ context.Context, id string) (*entity.StockCount, error) {
	if c, ok := r.s.d.counts[id]; ok {
		return copyCount(c), nil
	}
	return nil, nil
}

func (r *countRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockCount, error) {
	return r.GetByID(ctx, id)
}

func (r *countRepo) Update(_ context.Context, count *entity.StockCount) error {
	r.s.d.counts[count.ID] = copyCount(count)
	return nil
}

func (r *countRepo) Delete(_ context.Context, id string) error {
	delete(r.s.d.counts, id)
	return nil
}

func (r *countRepo) ListCompleted(_ context.Context) ([]*entity.StockCount, error) {
	var out []*entity.StockCount
	for _, c := range r.s.d.counts {
		if c.Completed {
			out = append(out, copyCount(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return completedBefore(out[i].CompletedAt, out[j].CompletedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r *countRepo) GetLine(_ context.Context, lineID string) (*entity.StockCountLine, error) {
	if l, ok := r.s.d.countLines[lineID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *countRepo) GetLineByReference(_ context.Context, countID, reference string) (*entity.StockCountLine, error) {
	for _, l := range r.s.d.countLines {
		if l.CountID == countID && l.Reference == reference {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *countRepo) SaveLine(_ context.Context, line *entity.StockCountLine) error {
	cp := *line
	r.s.d.countLines[line.ID] = &cp
	return nil
}

func (r *countRepo) DeleteLine(_ context.Context, lineID string) error {
	delete(r.s.d.countLines, lineID)
	return nil
}

func (r *countRepo) ListLines(_ context.Context, countID string) ([]*entity.StockCountLine, error) {
	var out []*entity.StockCountLine
	for _, l := range r.s.d.countLines {
		if l.CountID == countID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ─── Traslados ───────────────────────────────────────────────────────────────

type transferRepo struct{ s *Store }

func (r *transferRepo) Create(_ context.Context, transfer *entity.StockTransfer) error {
	r.s.d.transfers[transfer.ID] = copyTransfer(transfer)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.StockTransfer, error) {
	if t, ok := r.s.d.transfers[id]; ok {
		return copyTransfer(t), nil
	}
	return nil, nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) Update(_ context.Context, transfer *entity.StockTransfer) error {
	r.s.d.transfers[transfer.ID] = copyTransfer(transfer)
	return nil
}

func (r *transferRepo) Delete(_ context.Context, id string) error {
	delete(r.s.d.transfers, id)
	return nil
}

func (r *transferRepo) ListCompleted(_ context.Context) ([]*entity.StockTransfer, error) {
	var out []*entity.StockTransfer
	for _, t := range r.s.d.transfers {
		if t.Completed {
			out = append(out, copyTransfer(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return completedBefore(out[i].CompletedAt, out[j].CompletedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (r *transferRepo) GetLine(_ context.Context, lineID string) (*entity.StockTransferLine, error) {
	if l, ok := r.s.d.transferLines[lineID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *transferRepo) GetLineByReference(_ context.Context, transferID, reference string) (*entity.StockTransferLine, error) {
	for _, l := range r.s.d.transferLines {
		if l.TransferID == transferID && l.Reference == reference {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *transferRepo) SaveLine(_ context.Context, line *entity.StockTransferLine) error {
	cp := *line
	r.s.d.transferLines[line.ID] = &cp
	return nil
}

func (r *transferRepo) DeleteLine(_ context.Context, lineID string) error {
	delete(r.s.d.transferLines, lineID)
	return nil
}

func (r *transferRepo) ListLines(_ context.Context, transferID string) ([]*entity.StockTransferLine, error) {
	var out []*entity.StockTransferLine
	for _, l := range r.s.d.transferLines {
		if l.TransferID == transferID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ─── Maestros ────────────────────────────────────────────────────────────────

type warehouseRepo struct{ s *Store }

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	if w, ok := r.s.d.warehouses[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, nil
}

type productRepo struct{ s *Store }

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	if p, ok := r.s.d.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *productRepo) GetByReference(_ context.Context, reference string) (*entity.Product, error) {
	for _, p := range r.s.d.products {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *productRepo) ListTrackedIDs(_ context.Context) ([]string, error) {
	var ids []string
	for _, p := range r.s.d.products {
		if p.StockTracked {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ─── Documentos externos ─────────────────────────────────────────────────────

type documentRepo struct{ s *Store }

func (r *documentRepo) DocumentTypes(_ context.Context) ([]string, error) {
	return append([]string(nil), r.s.d.documentTypes...), nil
}

func (r *documentRepo) ListStockLines(_ context.Context, documentType, productID string, limit, offset int) ([]*entity.DocumentLine, error) {
	var out []*entity.DocumentLine
	for _, l := range r.s.d.documentLines {
		if l.DocumentType != documentType || l.StockEffect == entity.StockEffectNone {
			continue
		}
		if productID != "" && l.ProductID != productID {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MovedAt.After(out[j].MovedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *documentRepo) SumOutstanding(_ context.Context, warehouseID, reference string, stockEffect int) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range r.s.d.documentLines {
		if l.WarehouseID == warehouseID && l.Reference == reference && l.StockEffect == stockEffect {
			total = total.Add(l.Outstanding())
		}
	}
	return total, nil
}

func completedBefore(a, b *time.Time, idA, idB string) bool {
	switch {
	case a == nil || b == nil:
		return idA < idB
	case !a.Equal(*b):
		return a.Before(*b)
	default:
		return idA < idB
	}
}

func sortKeys(keys []entity.StockKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].WarehouseID != keys[j].WarehouseID {
			return keys[i].WarehouseID < keys[j].WarehouseID
		}
		return keys[i].Reference < keys[j].Reference
	})
}
