package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func salesLine(docID, qty string) entity.DocumentLine {
	return entity.DocumentLine{
		DocumentType: "delivery_note_out", DocumentID: docID, WarehouseID: whA, Reference: ref1, ProductID: "p1",
		StockEffect: entity.StockEffectOut, Quantity: dec(qty), MovedAt: hoursAgo(2),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Efectos inmediatos
// ──────────────────────────────────────────────────────────────────────────────

func TestDocument_SalidaAcumulaEnUnaFila(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(5))

	line := salesLine("out-1", "3")
	require.NoError(t, f.documents.Apply(f.ctx, line, dec("3")))
	require.NoError(t, f.documents.Apply(f.ctx, line, dec("2")))

	series := f.store.Series(whA, ref1)
	require.Len(t, series, 2)
	decEqual(t, "-5", series[1].Quantity)
	decEqual(t, "5", series[1].Balance)
	decEqual(t, "5", f.stock(t, whA, ref1).Quantity)
}

func TestDocument_DeltaQueAnulaBorraLaFila(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(5))

	line := salesLine("out-1", "3")
	require.NoError(t, f.documents.Apply(f.ctx, line, dec("3")))
	require.NoError(t, f.documents.Apply(f.ctx, line, dec("-3")))

	assert.Len(t, f.store.Series(whA, ref1), 1)
	decEqual(t, "10", f.stock(t, whA, ref1).Quantity)
}

func TestDocument_DeltaCeroNoCreaFila(t *testing.T) {
	f := newFixture(t, false)

	require.NoError(t, f.documents.Apply(f.ctx, salesLine("out-1", "0"), dec("0")))
	assert.Empty(t, f.store.Series(whA, ref1))
}

func TestDocument_ProductoSinControlSeIgnora(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref3, "p3", "10", hoursAgo(5))

	assert.Empty(t, f.store.Series(whA, ref3))
}

func TestDocument_SinEfectoNoHaceNada(t *testing.T) {
	f := newFixture(t, true)
	line := salesLine("quote-1", "4")
	line.StockEffect = entity.StockEffectNone

	require.NoError(t, f.documents.Apply(f.ctx, line, dec("4")))
	assert.Empty(t, f.store.Series(whA, ref1))
	assert.Empty(t, f.queue.Pending())
}

func TestDocument_RemoveDocument(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(5))
	f.receive(t, "in-2", whA, ref1, "p1", "4", hoursAgo(4))
	f.receive(t, "in-2", whB, ref1, "p1", "1", hoursAgo(4))

	require.NoError(t, f.documents.RemoveDocument(f.ctx, "delivery_note_in", "in-2"))

	assert.Len(t, f.store.Series(whA, ref1), 1)
	assert.Empty(t, f.store.Series(whB, ref1))
	decEqual(t, "10", f.stock(t, whA, ref1).Quantity)
	decEqual(t, "0", f.stock(t, whB, ref1).Quantity)
}

func TestDocument_TipoObligatorio(t *testing.T) {
	f := newFixture(t, false)
	line := salesLine("out-1", "1")
	line.DocumentType = ""

	err := f.documents.Apply(f.ctx, line, dec("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Efectos diferidos (±2)
// ──────────────────────────────────────────────────────────────────────────────

func TestDocument_PedidoConColaEncolaConciliacion(t *testing.T) {
	f := newFixture(t, true)
	line := entity.DocumentLine{
		DocumentType: "sales_order", DocumentID: "so-1", WarehouseID: whA, Reference: ref1, ProductID: "p1",
		StockEffect: entity.StockEffectReserve, Quantity: dec("3"), MovedAt: hoursAgo(1),
	}
	f.store.PutDocumentLine(line)
	require.NoError(t, f.documents.Apply(f.ctx, line, dec("3")))

	assert.Empty(t, f.store.Series(whA, ref1), "un pedido no mueve existencias")
	jobs := f.queue.Pending()
	require.Len(t, jobs, 1)
	assert.Equal(t, inventory.JobReconcileProduct, jobs[0].Kind)
	assert.Equal(t, "p1", jobs[0].ProductID)
	assert.Equal(t, whA, jobs[0].WarehouseID)
	decEqual(t, "0", f.stock(t, whA, ref1).Reserved, "todavía sin conciliar")

	_, err := f.reconciler.ReconcileProduct(f.ctx, jobs[0].ProductID, jobs[0].WarehouseID)
	require.NoError(t, err)
	decEqual(t, "3", f.stock(t, whA, ref1).Reserved)
}

func TestDocument_PedidoSinColaConciliaEnLinea(t *testing.T) {
	f := newFixture(t, false)
	f.document(t, "purchase_order", "po-1", whB, ref2, "p2", entity.StockEffectPending, "7", hoursAgo(1))

	assert.Empty(t, f.queue.Pending())
	decEqual(t, "7", f.stock(t, whB, ref2).PendingReceipt)
}
