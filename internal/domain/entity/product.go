package entity

import "time"

// Product ficha maestra mínima que necesita el motor de stock.
// Reference es el SKU a nivel de variante; StockTracked=false excluye la referencia del libro.
type Product struct {
	ID           string
	CompanyID    string
	Reference    string
	Name         string
	StockTracked bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
