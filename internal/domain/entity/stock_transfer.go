package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockTransfer cabecera de un traslado entre dos bodegas de la misma empresa.
type StockTransfer struct {
	ID                     string
	OriginWarehouseID      string
	DestinationWarehouseID string
	CompletedAt            *time.Time
	Completed              bool
	Note                   string
	UserID                 string
	CreatedAt              time.Time
}

// StockTransferLine cantidad a trasladar de una referencia.
type StockTransferLine struct {
	ID         string
	TransferID string
	Reference  string
	ProductID  string
	Quantity   decimal.Decimal
	RecordedAt time.Time
	UserID     string
}
