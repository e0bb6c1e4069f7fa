package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Efectos de stock de una línea de documento comercial.
// ±1 mueven existencias ya; ±2 solo cuentan como pendiente de recibir (2) o reservado (-2).
const (
	StockEffectReserve = -2
	StockEffectOut     = -1
	StockEffectNone    = 0
	StockEffectIn      = 1
	StockEffectPending = 2
)

// DocumentLine línea de un documento comercial externo (pedido, albarán, factura)
// tal como la emite el sistema de documentos; el motor solo lee.
type DocumentLine struct {
	DocumentType string
	DocumentID   string
	WarehouseID  string
	Reference    string
	ProductID    string
	StockEffect  int
	Quantity     decimal.Decimal
	Served       decimal.Decimal // cantidad ya servida/recibida (para pendiente y reservado)
	MovedAt      time.Time
}

// IsImmediate indica si la línea mueve existencias (efecto ±1).
func (l *DocumentLine) IsImmediate() bool {
	return l.StockEffect == StockEffectIn || l.StockEffect == StockEffectOut
}

// SignedQuantity cantidad con el signo del efecto de stock inmediato.
func (l *DocumentLine) SignedQuantity() decimal.Decimal {
	if !l.IsImmediate() {
		return decimal.Zero
	}
	return l.Quantity.Mul(decimal.NewFromInt(int64(l.StockEffect)))
}

// Outstanding cantidad abierta: max(cantidad - servida, 0).
func (l *DocumentLine) Outstanding() decimal.Decimal {
	out := l.Quantity.Sub(l.Served)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
