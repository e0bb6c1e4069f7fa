package export

import (
	"fmt"
	"io"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/xuri/excelize/v2"
)

const movementsSheet = "Movimientos"

var movementHeaders = []string{
	"ID", "Fecha", "Bodega", "Referencia", "Producto", "Tipo documento", "Documento", "Cantidad", "Saldo", "Descripción",
}

// MovementsWorkbook arma el libro Excel con una fila por movimiento.
func MovementsWorkbook(rows []inventory.MovementView) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", movementsSheet); err != nil {
		return nil, err
	}

	for i, h := range movementHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(movementsSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, v := range rows {
		m := v.Movement
		if m == nil {
			continue
		}
		row := i + 2
		document := ""
		if v.Document != nil {
			document = v.Document.Title
		}
		values := []interface{}{
			m.ID,
			m.MovedAt.Format("2006-01-02 15:04:05"),
			m.WarehouseID,
			m.Reference,
			m.ProductID,
			m.DocumentType,
			document,
			m.Quantity.InexactFloat64(),
			m.Balance.InexactFloat64(),
			m.Description,
		}
		for col, val := range values {
			if err := f.SetCellValue(movementsSheet, fmt.Sprintf("%s%d", columnName(col+1), row), val); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(movementsSheet, "B", "B", 20)
	_ = f.SetColWidth(movementsSheet, "J", "J", 40)
	return f, nil
}

// WriteMovements escribe el libro xlsx en w.
func WriteMovements(w io.Writer, rows []inventory.MovementView) error {
	f, err := MovementsWorkbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func columnName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return "A"
	}
	return name
}
