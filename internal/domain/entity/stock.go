package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock representa el stock actual de una referencia en una bodega (tabla materializada).
// Se deriva siempre del libro de movimientos más las líneas abiertas de compra y venta;
// nunca es el sistema de registro.
type Stock struct {
	WarehouseID    string
	Reference      string
	ProductID      string
	Quantity       decimal.Decimal // existencias
	Available      decimal.Decimal // disponible para vender
	Reserved       decimal.Decimal // reservado por pedidos de venta abiertos
	PendingReceipt decimal.Decimal // pendiente de recibir de pedidos de compra abiertos
	UpdatedAt      time.Time
}

// Key devuelve la clave de serie del stock.
func (s *Stock) Key() StockKey {
	return StockKey{WarehouseID: s.WarehouseID, Reference: s.Reference}
}

// RecalculateAvailable aplica disponible = existencias - reservado, sin bajar de cero.
func (s *Stock) RecalculateAvailable() {
	available := s.Quantity.Sub(s.Reserved)
	if available.IsNegative() {
		available = decimal.Zero
	}
	s.Available = available
}
