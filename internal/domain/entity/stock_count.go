package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockCount cabecera de un conteo de inventario (toma física).
// Una vez Completed=true las líneas quedan congeladas.
type StockCount struct {
	ID          string
	WarehouseID string
	StartedAt   time.Time
	CompletedAt *time.Time // nil hasta completar
	Completed   bool
	Note        string
	UserID      string
}

// StockCountLine cantidad contada de una referencia.
type StockCountLine struct {
	ID         string
	CountID    string
	Reference  string
	ProductID  string
	Quantity   decimal.Decimal // cantidad absoluta afirmada
	RecordedAt time.Time
	UserID     string
}
