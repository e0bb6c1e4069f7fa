package inventory

import (
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Servicio de dominio del saldo del libro de movimientos.
//
// Para una serie (bodega, referencia) ordenada por (fecha, id):
//
//	saldo[i] = saldo[i-1] + cantidad[i]
//
// salvo en los movimientos de conteo (checkpoints), cuyo saldo es el valor afirmado y cuya cantidad
// se recalcula como afirmado - saldo[i-1] para que la recurrencia se mantenga a través del checkpoint.

// Before indica si a va antes que b en el orden del libro.
func Before(a, b *entity.StockMovement) bool {
	if !a.MovedAt.Equal(b.MovedAt) {
		return a.MovedAt.Before(b.MovedAt)
	}
	return a.ID < b.ID
}

// SortSeries ordena una serie en orden ascendente del libro.
func SortSeries(series []*entity.StockMovement) {
	sort.SliceStable(series, func(i, j int) bool { return Before(series[i], series[j]) })
}

// CheckpointDelta cantidad a guardar en un checkpoint: afirmado - total previo.
func CheckpointDelta(asserted, priorTotal decimal.Decimal) decimal.Decimal {
	return asserted.Sub(priorTotal)
}

// Resequence recalcula saldo (y cantidad de los checkpoints) de una serie ya ordenada partiendo de opening,
// el saldo inmediatamente anterior a la primera fila. Devuelve solo las filas modificadas.
func Resequence(opening decimal.Decimal, series []*entity.StockMovement) []*entity.StockMovement {
	var changed []*entity.StockMovement
	prev := opening
	for _, m := range series {
		if m.IsCheckpoint() {
			delta := CheckpointDelta(m.Balance, prev)
			if !delta.Equal(m.Quantity) {
				m.Quantity = delta
				changed = append(changed, m)
			}
			prev = m.Balance
			continue
		}
		balance := prev.Add(m.Quantity)
		if !balance.Equal(m.Balance) {
			m.Balance = balance
			changed = append(changed, m)
		}
		prev = balance
	}
	return changed
}

// Total suma de cantidades de una serie.
func Total(series []*entity.StockMovement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range series {
		total = total.Add(m.Quantity)
	}
	return total
}
