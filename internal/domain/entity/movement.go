package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento que originan movimientos propios del motor de stock.
// Los documentos comerciales externos (pedidos, albaranes, facturas) traen su propio tipo.
const (
	DocumentTypeCount    = "stock_count"
	DocumentTypeTransfer = "stock_transfer"
)

// StockMovement representa una fila del libro de movimientos de stock.
// Una fila por (bodega, referencia, documento de origen). Balance es el saldo acumulado
// de la serie (bodega, referencia) ordenada por (MovedAt, ID).
type StockMovement struct {
	ID           int64 // sintético y monótono; desempate final del orden
	WarehouseID  string
	Reference    string
	ProductID    string
	DocumentType string // vacío en ajustes puros
	DocumentID   string
	Quantity     decimal.Decimal // delta con signo
	Balance      decimal.Decimal // saldo
	Description  string
	MovedAt      time.Time
}

// IsCheckpoint indica si el movimiento proviene de un conteo: su saldo es absoluto.
func (m *StockMovement) IsCheckpoint() bool {
	return m.DocumentType == DocumentTypeCount
}

// HasDocument indica si el movimiento tiene documento de origen.
func (m *StockMovement) HasDocument() bool {
	return m.DocumentType != "" && m.DocumentID != ""
}

// StockKey identifica una serie del libro: bodega + referencia.
type StockKey struct {
	WarehouseID string
	Reference   string
}

// MovementFilter filtros para listar movimientos.
type MovementFilter struct {
	CompanyID   string // solo bodegas de la empresa
	WarehouseID string
	Reference   string
	ProductID   string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}
