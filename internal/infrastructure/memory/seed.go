package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

type seedFile struct {
	Warehouses []struct {
		ID        string `json:"id"`
		CompanyID string `json:"company_id"`
		Name      string `json:"name"`
	} `json:"warehouses"`
	Products []struct {
		ID           string `json:"id"`
		CompanyID    string `json:"company_id"`
		Reference    string `json:"reference"`
		Name         string `json:"name"`
		StockTracked *bool  `json:"stock_tracked"`
	} `json:"products"`
}

// LoadSeed carga bodegas y productos desde JSON para el driver memory.
// Un producto sin stock_tracked controla stock.
func (s *Store) LoadSeed(r io.Reader) error {
	var f seedFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	now := time.Now()
	for _, w := range f.Warehouses {
		if w.ID == "" {
			return fmt.Errorf("seed: bodega sin id")
		}
		s.PutWarehouse(entity.Warehouse{ID: w.ID, CompanyID: w.CompanyID, Name: w.Name, CreatedAt: now, UpdatedAt: now})
	}
	for _, p := range f.Products {
		if p.ID == "" || p.Reference == "" {
			return fmt.Errorf("seed: producto sin id o referencia")
		}
		tracked := p.StockTracked == nil || *p.StockTracked
		s.PutProduct(entity.Product{
			ID: p.ID, CompanyID: p.CompanyID, Reference: p.Reference, Name: p.Name,
			StockTracked: tracked, CreatedAt: now, UpdatedAt: now,
		})
	}
	return nil
}
