package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Completar conteos
// ──────────────────────────────────────────────────────────────────────────────

func TestCount_CompletarFijaExistenciasAbsolutas(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(48))

	count := f.openCount(t, whA, map[string]string{ref1: "7"})
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))

	decEqual(t, "7", f.stock(t, whA, ref1).Quantity)

	series := f.store.Series(whA, ref1)
	require.Len(t, series, 2)
	assert.Equal(t, entity.DocumentTypeCount, series[1].DocumentType)
	decEqual(t, "-3", series[1].Quantity, "cantidad = afirmado - previo")
	decEqual(t, "7", series[1].Balance)

	detail, err := f.counts.Get(f.ctx, companyID, count.ID)
	require.NoError(t, err)
	assert.True(t, detail.Count.Completed)
	require.NotNil(t, detail.Count.CompletedAt)
}

func TestCount_ReferenciaSinMovimientosPrevios(t *testing.T) {
	f := newFixture(t, false)

	count := f.openCount(t, whB, map[string]string{ref2: "12"})
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))

	s := f.stock(t, whB, ref2)
	decEqual(t, "12", s.Quantity)
	decEqual(t, "12", s.Available)
	assert.Equal(t, "p2", s.ProductID)
}

func TestCount_CompletarDosVecesNoDuplicaMovimientos(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	count := f.openCount(t, whA, map[string]string{ref1: "4"})

	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))
	before := f.ledger()
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))

	assert.Equal(t, before, f.ledger())
	decEqual(t, "4", f.stock(t, whA, ref1).Quantity)
}

func TestCount_CheckpointEnCeroSeConserva(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))

	count := f.openCount(t, whA, map[string]string{ref1: "0"})
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))

	series := f.store.Series(whA, ref1)
	require.Len(t, series, 2, "el conteo en cero deja su fila")
	decEqual(t, "-10", series[1].Quantity)
	decEqual(t, "0", f.stock(t, whA, ref1).Quantity)

	// Un documento posterior parte de cero
	f.receive(t, "in-2", whA, ref1, "p1", "3", time.Now().Add(time.Hour))
	decEqual(t, "3", f.stock(t, whA, ref1).Quantity)
}

func TestCount_DocumentoRetroactivoNoCambiaLoAfirmado(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(48))
	count := f.openCount(t, whA, map[string]string{ref1: "7"})
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))

	// Llega tarde un albarán fechado antes del conteo
	f.receive(t, "in-2", whA, ref1, "p1", "5", hoursAgo(24))

	decEqual(t, "7", f.stock(t, whA, ref1).Quantity, "el conteo sigue mandando")
	series := f.store.Series(whA, ref1)
	require.Len(t, series, 3)
	decEqual(t, "15", series[1].Balance)
	decEqual(t, "-8", series[2].Quantity)
	decEqual(t, "7", series[2].Balance)

	// Un movimiento posterior al conteo sí suma
	f.receive(t, "in-3", whA, ref1, "p1", "2", time.Now().Add(time.Hour))
	decEqual(t, "9", f.stock(t, whA, ref1).Quantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Líneas
// ──────────────────────────────────────────────────────────────────────────────

func TestCount_LecturaRepetidaSumaUno(t *testing.T) {
	f := newFixture(t, false)
	count := f.openCount(t, whA, map[string]string{ref1: "5"})

	line, err := f.counts.AddLine(f.ctx, companyID, count.ID, inventory.CountLineInput{Reference: ref1, Quantity: dec("1"), UserID: userID})
	require.NoError(t, err)
	decEqual(t, "6", line.Quantity)

	detail, err := f.counts.Get(f.ctx, companyID, count.ID)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, "p1", detail.Lines[0].ProductID, "el producto se resuelve por referencia")
}

func TestCount_ActualizarYBorrarLinea(t *testing.T) {
	f := newFixture(t, false)
	count := f.openCount(t, whA, map[string]string{ref1: "5", ref2: "3"})
	detail, err := f.counts.Get(f.ctx, companyID, count.ID)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 2)

	updated, err := f.counts.UpdateLine(f.ctx, companyID, count.ID, detail.Lines[0].ID, dec("9"))
	require.NoError(t, err)
	decEqual(t, "9", updated.Quantity)

	require.NoError(t, f.counts.DeleteLine(f.ctx, companyID, count.ID, detail.Lines[1].ID))

	_, err = f.counts.UpdateLine(f.ctx, companyID, count.ID, detail.Lines[0].ID, dec("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = f.counts.DeleteLine(f.ctx, companyID, count.ID, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCount_LineasBloqueadasTrasCompletar(t *testing.T) {
	f := newFixture(t, false)
	count := f.openCount(t, whA, map[string]string{ref1: "5"})
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))

	_, err := f.counts.AddLine(f.ctx, companyID, count.ID, inventory.CountLineInput{Reference: ref2, Quantity: dec("1")})
	require.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	assert.Equal(t, domain.KindAlreadyCompleted, domain.KindOf(err))
}

func TestCount_ReferenciaDesconocida(t *testing.T) {
	f := newFixture(t, false)
	count := f.openCount(t, whA, nil)

	_, err := f.counts.AddLine(f.ctx, companyID, count.ID, inventory.CountLineInput{Reference: "NO-EXISTE", Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Borrar conteos
// ──────────────────────────────────────────────────────────────────────────────

func TestCount_BorrarCompletadoRestauraExistencias(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	count := f.openCount(t, whA, map[string]string{ref1: "4"})
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))
	decEqual(t, "4", f.stock(t, whA, ref1).Quantity)

	require.NoError(t, f.counts.Delete(f.ctx, companyID, count.ID))

	decEqual(t, "10", f.stock(t, whA, ref1).Quantity)
	series := f.store.Series(whA, ref1)
	require.Len(t, series, 1)
	assert.Equal(t, "in-1", series[0].DocumentID)

	_, err := f.counts.Get(f.ctx, companyID, count.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCount_BorrarAbiertoNoTocaElLibro(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	before := f.ledger()
	count := f.openCount(t, whA, map[string]string{ref1: "1"})

	require.NoError(t, f.counts.Delete(f.ctx, companyID, count.ID))
	assert.Equal(t, before, f.ledger())
}

// ──────────────────────────────────────────────────────────────────────────────
// Validaciones y extensiones
// ──────────────────────────────────────────────────────────────────────────────

func TestCount_BodegaDeOtraEmpresa(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.counts.Create(f.ctx, inventory.CreateCountInput{CompanyID: companyID, WarehouseID: whX})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.counts.Create(f.ctx, inventory.CreateCountInput{CompanyID: companyID, WarehouseID: "wh-nada"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCount_OtraEmpresaNoOperaSobreElConteo(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	count := f.openCount(t, whA, map[string]string{ref1: "4"})
	before := f.ledger()

	_, err := f.counts.Get(f.ctx, otherCompanyID, count.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.counts.AddLine(f.ctx, otherCompanyID, count.ID, inventory.CountLineInput{Reference: ref2, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.counts.Complete(f.ctx, otherCompanyID, count.ID), domain.ErrForbidden)
	assert.ErrorIs(t, f.counts.Delete(f.ctx, otherCompanyID, count.ID), domain.ErrForbidden)

	assert.Equal(t, before, f.ledger())
	detail, err := f.counts.Get(f.ctx, companyID, count.ID)
	require.NoError(t, err)
	assert.False(t, detail.Count.Completed)
	assert.Len(t, detail.Lines, 1)

	// Sin empresa (procesos internos) no se restringe
	_, err = f.counts.Get(f.ctx, "", count.ID)
	assert.NoError(t, err)
}

func TestCount_HookVetaLinea(t *testing.T) {
	f := newFixture(t, false)
	f.hooks.Register(inventory.HookFunc{
		HookName: "sin-ref2",
		Fn: func(_ context.Context, ev inventory.HookEvent) error {
			if ev.Point == inventory.HookAddCountLine && ev.Reference == ref2 {
				return errors.New("referencia bloqueada")
			}
			return nil
		},
	})
	count := f.openCount(t, whA, map[string]string{ref1: "2"})

	_, err := f.counts.AddLine(f.ctx, companyID, count.ID, inventory.CountLineInput{Reference: ref2, Quantity: dec("1")})
	require.ErrorIs(t, err, domain.ErrHookVeto)
	assert.Equal(t, domain.KindValidationFailed, domain.KindOf(err))

	detail, err := f.counts.Get(f.ctx, companyID, count.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Lines, 1, "la línea vetada no se guarda")
}

func TestCount_HookVetaBorradoYRevierteTodo(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	count := f.openCount(t, whA, map[string]string{ref1: "4"})
	require.NoError(t, f.counts.Complete(f.ctx, companyID, count.ID))
	before := f.ledger()

	f.hooks.Register(inventory.HookFunc{
		HookName: "auditoria",
		Fn: func(_ context.Context, ev inventory.HookEvent) error {
			if ev.Point == inventory.HookDeleteCountLine {
				return errors.New("conteo auditado")
			}
			return nil
		},
	})

	err := f.counts.Delete(f.ctx, companyID, count.ID)
	require.ErrorIs(t, err, domain.ErrHookVeto)
	assert.Equal(t, before, f.ledger())
	decEqual(t, "4", f.stock(t, whA, ref1).Quantity)
}
