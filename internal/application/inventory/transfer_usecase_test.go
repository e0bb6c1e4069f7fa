package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Ejecutar traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_EjecutarMueveStockYEscribeEspejos(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "4"})

	require.NoError(t, f.transfers.Execute(f.ctx, companyID, tr.ID))

	decEqual(t, "6", f.stock(t, whA, ref1).Quantity)
	decEqual(t, "6", f.stock(t, whA, ref1).Available)
	decEqual(t, "4", f.stock(t, whB, ref1).Quantity)

	out := f.store.Series(whA, ref1)
	in := f.store.Series(whB, ref1)
	require.Len(t, out, 2)
	require.Len(t, in, 1)
	assert.Equal(t, entity.DocumentTypeTransfer, out[1].DocumentType)
	decEqual(t, "-4", out[1].Quantity)
	decEqual(t, "6", out[1].Balance)
	decEqual(t, "4", in[0].Quantity)
	assert.True(t, out[1].MovedAt.Equal(in[0].MovedAt), "ambos espejos llevan la fecha de ejecución")

	detail, err := f.transfers.Get(f.ctx, companyID, tr.ID)
	require.NoError(t, err)
	assert.True(t, detail.Transfer.Completed)
	require.NotNil(t, detail.Transfer.CompletedAt)
	assert.True(t, detail.Transfer.CompletedAt.Equal(in[0].MovedAt))
}

func TestTransfer_StockInsuficienteNoAplicaNingunaLinea(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	f.receive(t, "in-2", whA, ref2, "p2", "2", hoursAgo(24))
	before := f.ledger()
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "4", ref2: "5"})

	err := f.transfers.Execute(f.ctx, companyID, tr.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))

	assert.Equal(t, before, f.ledger(), "la primera línea también se deshace")
	decEqual(t, "10", f.stock(t, whA, ref1).Quantity)
	decEqual(t, "0", f.stock(t, whB, ref1).Quantity)

	detail, err := f.transfers.Get(f.ctx, companyID, tr.ID)
	require.NoError(t, err)
	assert.False(t, detail.Transfer.Completed)
}

func TestTransfer_DisponibleDescuentaReservas(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	f.document(t, "sales_order", "so-1", whA, ref1, "p1", entity.StockEffectReserve, "8", hoursAgo(12))

	s := f.stock(t, whA, ref1)
	decEqual(t, "8", s.Reserved)
	decEqual(t, "2", s.Available)

	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "5"})
	assert.ErrorIs(t, f.transfers.Execute(f.ctx, companyID, tr.ID), domain.ErrInsufficientStock)

	_, err := f.transfers.UpdateLine(f.ctx, companyID, tr.ID, mustLineID(t, f, tr.ID), dec("2"))
	require.NoError(t, err)
	require.NoError(t, f.transfers.Execute(f.ctx, companyID, tr.ID))
	decEqual(t, "0", f.stock(t, whA, ref1).Available)
}

func TestTransfer_EjecutarDosVecesNoHaceNada(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "3"})
	require.NoError(t, f.transfers.Execute(f.ctx, companyID, tr.ID))
	before := f.ledger()

	require.NoError(t, f.transfers.Execute(f.ctx, companyID, tr.ID))
	assert.Equal(t, before, f.ledger())
	decEqual(t, "7", f.stock(t, whA, ref1).Quantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Borrar traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_BorrarCompletadoRevierte(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	before := f.ledger()
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "4"})
	require.NoError(t, f.transfers.Execute(f.ctx, companyID, tr.ID))

	require.NoError(t, f.transfers.Delete(f.ctx, companyID, tr.ID))

	assert.Equal(t, before, f.ledger())
	decEqual(t, "10", f.stock(t, whA, ref1).Quantity)
	decEqual(t, "0", f.stock(t, whB, ref1).Quantity)
	_, err := f.transfers.Get(f.ctx, companyID, tr.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransfer_RevertirNoExigeDisponibleEnDestino(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(48))
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "4"})
	require.NoError(t, f.transfers.Execute(f.ctx, companyID, tr.ID))

	// El destino ya vendió lo recibido
	f.document(t, "delivery_note_out", "out-1", whB, ref1, "p1", entity.StockEffectOut, "4", hoursAgo(-1))
	decEqual(t, "0", f.stock(t, whB, ref1).Quantity)

	require.NoError(t, f.transfers.Delete(f.ctx, companyID, tr.ID))
	decEqual(t, "-4", f.stock(t, whB, ref1).Quantity)
	decEqual(t, "0", f.stock(t, whB, ref1).Available, "el disponible no baja de cero")
	decEqual(t, "10", f.stock(t, whA, ref1).Quantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cabecera y líneas
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_ValidacionDeBodegas(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.transfers.Create(f.ctx, inventory.TransferInput{OriginWarehouseID: whA, DestinationWarehouseID: whA})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "origen y destino iguales")

	_, err = f.transfers.Create(f.ctx, inventory.TransferInput{OriginWarehouseID: whA, DestinationWarehouseID: whX})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "empresas distintas")

	_, err = f.transfers.Create(f.ctx, inventory.TransferInput{CompanyID: companyID, OriginWarehouseID: whA, DestinationWarehouseID: whX})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.transfers.Create(f.ctx, inventory.TransferInput{OriginWarehouseID: whA})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransfer_OtraEmpresaNoOperaSobreElTraslado(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "4"})
	before := f.ledger()

	_, err := f.transfers.Get(f.ctx, otherCompanyID, tr.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.transfers.AddLine(f.ctx, otherCompanyID, tr.ID, inventory.TransferLineInput{Reference: ref1, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.transfers.Update(f.ctx, tr.ID, inventory.TransferInput{CompanyID: otherCompanyID, Note: "ajena"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.transfers.Execute(f.ctx, otherCompanyID, tr.ID), domain.ErrForbidden)
	assert.ErrorIs(t, f.transfers.Delete(f.ctx, otherCompanyID, tr.ID), domain.ErrForbidden)

	assert.Equal(t, before, f.ledger())
	decEqual(t, "10", f.stock(t, whA, ref1).Quantity)
	detail, err := f.transfers.Get(f.ctx, companyID, tr.ID)
	require.NoError(t, err)
	assert.False(t, detail.Transfer.Completed)
	decEqual(t, "4", detail.Lines[0].Quantity)
}

func TestTransfer_ActualizarCabeceraValida(t *testing.T) {
	f := newFixture(t, false)
	tr := f.openTransfer(t, whA, whB, nil)

	updated, err := f.transfers.Update(f.ctx, tr.ID, inventory.TransferInput{
		OriginWarehouseID: whB, DestinationWarehouseID: whA, Note: "al revés",
	})
	require.NoError(t, err)
	assert.Equal(t, whB, updated.OriginWarehouseID)
	assert.Equal(t, "al revés", updated.Note)

	_, err = f.transfers.Update(f.ctx, tr.ID, inventory.TransferInput{DestinationWarehouseID: whB})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransfer_LecturaRepetidaSumaUno(t *testing.T) {
	f := newFixture(t, false)
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "5"})

	line, err := f.transfers.AddLine(f.ctx, companyID, tr.ID, inventory.TransferLineInput{Reference: ref1, Quantity: dec("5"), UserID: userID})
	require.NoError(t, err)
	decEqual(t, "6", line.Quantity, "la cantidad enviada se ignora en una lectura repetida")

	detail, err := f.transfers.Get(f.ctx, companyID, tr.ID)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 1)
	decEqual(t, "6", detail.Lines[0].Quantity)
	assert.Equal(t, "p1", detail.Lines[0].ProductID)
}

func TestTransfer_LineasValidanCantidad(t *testing.T) {
	f := newFixture(t, false)
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "2"})

	line, err := f.transfers.AddLine(f.ctx, companyID, tr.ID, inventory.TransferLineInput{Reference: ref1, Quantity: dec("3")})
	require.NoError(t, err)
	decEqual(t, "3", line.Quantity, "2 + lectura repetida")

	_, err = f.transfers.AddLine(f.ctx, companyID, tr.ID, inventory.TransferLineInput{Reference: ref2, Quantity: dec("0")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, f.transfers.DeleteLine(f.ctx, companyID, tr.ID, line.ID))
	detail, err := f.transfers.Get(f.ctx, companyID, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Lines)
}

func TestTransfer_HookVetaEjecucion(t *testing.T) {
	f := newFixture(t, false)
	f.receive(t, "in-1", whA, ref1, "p1", "10", hoursAgo(24))
	before := f.ledger()
	f.hooks.Register(inventory.HookFunc{
		HookName: "cierre",
		Fn: func(_ context.Context, ev inventory.HookEvent) error {
			if ev.Point == inventory.HookTransferStock {
				return errors.New("periodo cerrado")
			}
			return nil
		},
	})
	tr := f.openTransfer(t, whA, whB, map[string]string{ref1: "4"})

	require.ErrorIs(t, f.transfers.Execute(f.ctx, companyID, tr.ID), domain.ErrHookVeto)
	assert.Equal(t, before, f.ledger())
	decEqual(t, "10", f.stock(t, whA, ref1).Quantity)
}

func mustLineID(t *testing.T, f *fixture, transferID string) string {
	t.Helper()
	detail, err := f.transfers.Get(f.ctx, companyID, transferID)
	require.NoError(t, err)
	require.NotEmpty(t, detail.Lines)
	return detail.Lines[0].ID
}
