package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestMovements_OrdenDescendenteYDocumentos(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(5))
	count := f.openCount(t, whA, map[string]string{ref1: "8"})
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))

	registry := inventory.NewDocumentTypeRegistry()
	registry.Register("delivery_note_in", func(id string) inventory.DocumentRef {
		return inventory.DocumentRef{Type: "delivery_note_in", ID: id, Title: "Albarán " + id}
	})
	q := inventory.NewLedgerQuery(f.store, registry)

	rows, err := q.Movements(f.ctx, entity.MovementFilter{WarehouseID: whA, Reference: ref1})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, entity.DocumentTypeCount, rows[0].Movement.DocumentType)
	assert.Equal(t, "Conteo "+count.ID, rows[0].Document.Title)
	assert.Equal(t, "/api/counts/"+count.ID, rows[0].Document.URL)
	assert.Equal(t, "Albarán in-1", rows[1].Document.Title)
}

func TestMovements_TipoDesconocidoUsaTipoEId(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(5))

	rows, err := f.query.Movements(f.ctx, entity.MovementFilter{ProductID: "p1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "delivery_note_in in-1", rows[0].Document.Title)
}

func TestRegistry_SinDocumentoDevuelveNil(t *testing.T) {
	assert.Nil(t, inventory.NewDocumentTypeRegistry().Resolve("", ""))
}

func TestMovements_FiltrosYPaginacion(t *testing.T) {
	f := newFixture(t, false)
	for i, at := range []int{10, 8, 6, 4} {
		f.receive(t, "in-"+string(rune('a'+i)), whA, ref1, "p1", "1", hoursAgo(at))
	}

	from := hoursAgo(9)
	to := hoursAgo(5)
	rows, err := f.query.Movements(f.ctx, entity.MovementFilter{WarehouseID: whA, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "in-c", rows[0].Movement.DocumentID)

	rows, err = f.query.Movements(f.ctx, entity.MovementFilter{WarehouseID: whA, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "in-c", rows[0].Movement.DocumentID)

	rows, err = f.query.Movements(f.ctx, entity.MovementFilter{WarehouseID: whA, Limit: 10_000})
	require.NoError(t, err)
	assert.Len(t, rows, 4, "límite por encima del máximo se recorta")

	_, err = f.query.Movements(f.ctx, entity.MovementFilter{Offset: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStockByReference(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(5))
	f.receive(t, "in-2", whB, ref1, "p1", "2", hoursAgo(5))

	rows, err := f.query.StockByReference(f.ctx, companyID, ref1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestLedgerQuery_FiltraPorEmpresa(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(5))
	f.receive(t, "in-2", whX, ref1, "p1", "3", hoursAgo(5))

	rows, err := f.query.StockByReference(f.ctx, otherCompanyID, ref1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, whX, rows[0].WarehouseID)

	all, err := f.query.StockByReference(f.ctx, "", ref1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	views, err := f.query.Movements(f.ctx, entity.MovementFilter{CompanyID: otherCompanyID})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "in-2", views[0].Movement.DocumentID)

	_, err = f.query.Movements(f.ctx, entity.MovementFilter{CompanyID: otherCompanyID, WarehouseID: whA})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.query.Stock(f.ctx, otherCompanyID, whA, ref1)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.ErrorIs(t, f.query.AuthorizeProduct(f.ctx, otherCompanyID, "p1"), domain.ErrForbidden)
	assert.ErrorIs(t, f.query.AuthorizeProduct(f.ctx, companyID, "p-nada"), domain.ErrNotFound)
	assert.ErrorIs(t, f.query.AuthorizeDocument(f.ctx, otherCompanyID, "delivery_note_in", "in-1"), domain.ErrForbidden)
	assert.NoError(t, f.query.AuthorizeDocument(f.ctx, otherCompanyID, "delivery_note_in", "in-2"))
	assert.NoError(t, f.query.AuthorizeWarehouse(f.ctx, companyID, whB))
}
