package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: almacén en memoria con dos bodegas de la misma empresa, una de otra
// empresa y tres productos (REF-3 sin control de stock).
// ──────────────────────────────────────────────────────────────────────────────

const (
	companyID      = "co-1"
	otherCompanyID = "co-2"
	whA            = "wh-a"
	whB            = "wh-b"
	whX            = "wh-x"
	ref1           = "REF-1"
	ref2           = "REF-2"
	ref3           = "REF-3"
	userID         = "user-1"
)

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	queue      *memory.JobQueue
	hooks      *inventory.HookRegistry
	alerts     *recordingAlerter
	writer     *inventory.LedgerWriter
	reconciler *inventory.SnapshotReconciler
	counts     *inventory.CountWorkflow
	transfers  *inventory.TransferWorkflow
	rebuild    *inventory.RebuildEngine
	documents  *inventory.DocumentEvents
	query      *inventory.LedgerQuery
}

// newFixture arma los servicios; con withQueue los efectos ±2 se difieren a la cola.
func newFixture(t *testing.T, withQueue bool) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutWarehouse(entity.Warehouse{ID: whA, CompanyID: companyID, Name: "Principal"})
	store.PutWarehouse(entity.Warehouse{ID: whB, CompanyID: companyID, Name: "Sucursal"})
	store.PutWarehouse(entity.Warehouse{ID: whX, CompanyID: otherCompanyID, Name: "Ajena"})
	store.PutProduct(entity.Product{ID: "p1", CompanyID: companyID, Reference: ref1, StockTracked: true})
	store.PutProduct(entity.Product{ID: "p2", CompanyID: companyID, Reference: ref2, StockTracked: true})
	store.PutProduct(entity.Product{ID: "p3", CompanyID: companyID, Reference: ref3, StockTracked: false})

	queue, err := memory.NewJobQueue(1)
	require.NoError(t, err)

	log := logger.Nop()
	f := &fixture{
		ctx:    context.Background(),
		store:  store,
		queue:  queue,
		hooks:  inventory.NewHookRegistry(),
		alerts: &recordingAlerter{},
		writer: inventory.NewLedgerWriter(log),
	}
	var jq inventory.JobQueue
	if withQueue {
		jq = queue
	}
	f.reconciler = inventory.NewSnapshotReconciler(store, f.hooks, f.alerts, log)
	f.counts = inventory.NewCountWorkflow(store, f.writer, f.reconciler, f.hooks, log)
	f.transfers = inventory.NewTransferWorkflow(store, f.writer, f.hooks, log)
	f.rebuild = inventory.NewRebuildEngine(store, f.writer, f.reconciler, f.hooks, queue, log, 2)
	f.documents = inventory.NewDocumentEvents(store, f.writer, f.reconciler, jq, log)
	f.query = inventory.NewLedgerQuery(store, nil)
	return f
}

// document registra la línea en el sistema de documentos y notifica el cambio al motor.
func (f *fixture) document(t *testing.T, docType, docID, wh, ref, productID string, effect int, qty string, at time.Time) entity.DocumentLine {
	t.Helper()
	line := entity.DocumentLine{
		DocumentType: docType,
		DocumentID:   docID,
		WarehouseID:  wh,
		Reference:    ref,
		ProductID:    productID,
		StockEffect:  effect,
		Quantity:     dec(qty),
		MovedAt:      at,
	}
	f.store.PutDocumentLine(line)
	require.NoError(t, f.documents.Apply(f.ctx, line, dec(qty)))
	return line
}

// receive entrada inmediata (albarán de compra).
func (f *fixture) receive(t *testing.T, docID, wh, ref, productID, qty string, at time.Time) {
	t.Helper()
	f.document(t, "delivery_note_in", docID, wh, ref, productID, entity.StockEffectIn, qty, at)
}

func (f *fixture) stock(t *testing.T, wh, ref string) *entity.Stock {
	t.Helper()
	s, err := f.query.Stock(f.ctx, companyID, wh, ref)
	require.NoError(t, err)
	return s
}

// openCount abre un conteo en wh con las cantidades indicadas por referencia.
func (f *fixture) openCount(t *testing.T, wh string, qtys map[string]string) *entity.StockCount {
	t.Helper()
	count, err := f.counts.Create(f.ctx, inventory.CreateCountInput{CompanyID: companyID, WarehouseID: wh, UserID: userID})
	require.NoError(t, err)
	for _, ref := range []string{ref1, ref2, ref3} {
		qty, ok := qtys[ref]
		if !ok {
			continue
		}
		_, err := f.counts.AddLine(f.ctx, companyID, count.ID, inventory.CountLineInput{Reference: ref, Quantity: dec(qty), UserID: userID})
		require.NoError(t, err)
	}
	return count
}

// openTransfer abre un traslado con las cantidades indicadas por referencia.
func (f *fixture) openTransfer(t *testing.T, from, to string, qtys map[string]string) *entity.StockTransfer {
	t.Helper()
	tr, err := f.transfers.Create(f.ctx, inventory.TransferInput{
		CompanyID: companyID, OriginWarehouseID: from, DestinationWarehouseID: to, UserID: userID,
	})
	require.NoError(t, err)
	for _, ref := range []string{ref1, ref2, ref3} {
		qty, ok := qtys[ref]
		if !ok {
			continue
		}
		_, err := f.transfers.AddLine(f.ctx, companyID, tr.ID, inventory.TransferLineInput{Reference: ref, Quantity: dec(qty), UserID: userID})
		require.NoError(t, err)
	}
	return tr
}

// ledgerRow proyección comparable de un movimiento (sin ID).
type ledgerRow struct {
	WarehouseID  string
	Reference    string
	DocumentType string
	DocumentID   string
	Quantity     string
	Balance      string
	MovedAt      time.Time
}

func (f *fixture) ledger() []ledgerRow {
	all := f.store.AllMovements()
	out := make([]ledgerRow, 0, len(all))
	for _, m := range all {
		out = append(out, ledgerRow{
			WarehouseID:  m.WarehouseID,
			Reference:    m.Reference,
			DocumentType: m.DocumentType,
			DocumentID:   m.DocumentID,
			Quantity:     m.Quantity.String(),
			Balance:      m.Balance.String(),
			MovedAt:      m.MovedAt,
		})
	}
	return out
}

type recordingAlerter struct {
	mu   sync.Mutex
	seen []inventory.Inconsistency
}

func (a *recordingAlerter) Alert(_ context.Context, inc inventory.Inconsistency) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, inc)
}

func (a *recordingAlerter) all() []inventory.Inconsistency {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]inventory.Inconsistency(nil), a.seen...)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// decEqual compara por valor (10 == 10.00).
func decEqual(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "esperado %s, obtenido %s %v", want, got, msgAndArgs)
}

// hoursAgo fecha en el pasado para documentos anteriores a conteos y traslados.
func hoursAgo(h int) time.Time {
	return time.Now().Add(-time.Duration(h) * time.Hour).Truncate(time.Millisecond)
}
