package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// TransferWorkflow traslados entre bodegas de la misma empresa.
// Al ejecutar mueve directamente el stock materializado y escribe dos movimientos espejo por línea.
type TransferWorkflow struct {
	tx     TxRunner
	writer *LedgerWriter
	hooks  *HookRegistry
	log    *logger.Logger
	now    Clock
}

// NewTransferWorkflow construye el flujo de traslados.
func NewTransferWorkflow(tx TxRunner, writer *LedgerWriter, hooks *HookRegistry, log *logger.Logger) *TransferWorkflow {
	return &TransferWorkflow{tx: tx, writer: writer, hooks: hooks, log: log, now: time.Now}
}

// TransferInput datos de cabecera de un traslado.
type TransferInput struct {
	CompanyID              string
	OriginWarehouseID      string
	DestinationWarehouseID string
	Note                   string
	UserID                 string
}

// TransferLineInput línea a trasladar.
type TransferLineInput struct {
	Reference string
	ProductID string
	Quantity  decimal.Decimal
	UserID    string
}

// TransferDetail traslado con sus líneas.
type TransferDetail struct {
	Transfer *entity.StockTransfer
	Lines    []*entity.StockTransferLine
}

// Create abre un traslado validando bodegas distintas de la misma empresa.
func (uc *TransferWorkflow) Create(ctx context.Context, in TransferInput) (*entity.StockTransfer, error) {
	t := &entity.StockTransfer{
		ID:                     uuid.New().String(),
		OriginWarehouseID:      in.OriginWarehouseID,
		DestinationWarehouseID: in.DestinationWarehouseID,
		Note:                   in.Note,
		UserID:                 in.UserID,
		CreatedAt:              uc.now(),
	}
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		if err := validateTransferWarehouses(ctx, repos, t.OriginWarehouseID, t.DestinationWarehouseID, in.CompanyID); err != nil {
			return err
		}
		return repos.Transfers.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Update cambia bodegas o nota de un traslado abierto, con la misma validación que Create.
func (uc *TransferWorkflow) Update(ctx context.Context, transferID string, in TransferInput) (*entity.StockTransfer, error) {
	var out *entity.StockTransfer
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		t, err := uc.openTransfer(ctx, repos, in.CompanyID, transferID)
		if err != nil {
			return err
		}
		if in.OriginWarehouseID != "" {
			t.OriginWarehouseID = in.OriginWarehouseID
		}
		if in.DestinationWarehouseID != "" {
			t.DestinationWarehouseID = in.DestinationWarehouseID
		}
		t.Note = in.Note
		if err := validateTransferWarehouses(ctx, repos, t.OriginWarehouseID, t.DestinationWarehouseID, in.CompanyID); err != nil {
			return err
		}
		if err := repos.Transfers.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// Get devuelve el traslado con sus líneas. Con companyID no vacío la bodega de origen debe ser de esa
// empresa; lo mismo vale para el resto de operaciones sobre un traslado existente.
func (uc *TransferWorkflow) Get(ctx context.Context, companyID, transferID string) (*TransferDetail, error) {
	var out *TransferDetail
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		t, err := repos.Transfers.GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
		}
		if _, err := loadWarehouse(ctx, repos, t.OriginWarehouseID, companyID); err != nil {
			return err
		}
		lines, err := repos.Transfers.ListLines(ctx, transferID)
		if err != nil {
			return err
		}
		out = &TransferDetail{Transfer: t, Lines: lines}
		return nil
	})
	return out, err
}

// AddLine registra una referencia en un traslado abierto. Si la referencia ya tiene línea se suma 1
// (lectura repetida del escáner); si no, se crea con la cantidad indicada.
func (uc *TransferWorkflow) AddLine(ctx context.Context, companyID, transferID string, in TransferLineInput) (*entity.StockTransferLine, error) {
	if in.Reference == "" {
		return nil, fmt.Errorf("%w: referencia obligatoria", domain.ErrInvalidInput)
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad a trasladar debe ser positiva", domain.ErrInvalidInput)
	}
	var out *entity.StockTransferLine
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		t, err := uc.openTransfer(ctx, repos, companyID, transferID)
		if err != nil {
			return err
		}
		line, err := repos.Transfers.GetLineByReference(ctx, transferID, in.Reference)
		if err != nil {
			return err
		}
		if line != nil {
			line.Quantity = line.Quantity.Add(decimal.NewFromInt(1))
		} else {
			productID, err := resolveProductID(ctx, repos, in.ProductID, in.Reference)
			if err != nil {
				return err
			}
			line = &entity.StockTransferLine{
				ID:         uuid.New().String(),
				TransferID: transferID,
				Reference:  in.Reference,
				ProductID:  productID,
				Quantity:   in.Quantity,
			}
		}
		line.RecordedAt = uc.now()
		line.UserID = in.UserID

		if err := uc.hooks.Fire(ctx, HookEvent{
			Point:                  HookAddTransferLine,
			WarehouseID:            t.OriginWarehouseID,
			DestinationWarehouseID: t.DestinationWarehouseID,
			Reference:              line.Reference,
			ProductID:              line.ProductID,
			Quantity:               line.Quantity,
			DocumentType:           entity.DocumentTypeTransfer,
			DocumentID:             transferID,
		}); err != nil {
			return err
		}
		if err := repos.Transfers.SaveLine(ctx, line); err != nil {
			return err
		}
		out = line
		return nil
	})
	return out, err
}

// UpdateLine fija la cantidad de una línea de un traslado abierto.
func (uc *TransferWorkflow) UpdateLine(ctx context.Context, companyID, transferID, lineID string, quantity decimal.Decimal) (*entity.StockTransferLine, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad a trasladar debe ser positiva", domain.ErrInvalidInput)
	}
	var out *entity.StockTransferLine
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := uc.openTransfer(ctx, repos, companyID, transferID); err != nil {
			return err
		}
		line, err := transferLine(ctx, repos, transferID, lineID)
		if err != nil {
			return err
		}
		line.Quantity = quantity
		if err := repos.Transfers.SaveLine(ctx, line); err != nil {
			return err
		}
		out = line
		return nil
	})
	return out, err
}

// DeleteLine elimina una línea de un traslado abierto.
func (uc *TransferWorkflow) DeleteLine(ctx context.Context, companyID, transferID, lineID string) error {
	return uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := uc.openTransfer(ctx, repos, companyID, transferID); err != nil {
			return err
		}
		if _, err := transferLine(ctx, repos, transferID, lineID); err != nil {
			return err
		}
		return repos.Transfers.DeleteLine(ctx, lineID)
	})
}

// Execute completa el traslado en una sola transacción: por cada línea exige disponible suficiente en
// origen, mueve el stock y escribe los movimientos espejo. Si una línea falla no se aplica ninguna.
// Ejecutar un traslado ya completado no hace nada.
func (uc *TransferWorkflow) Execute(ctx context.Context, companyID, transferID string) error {
	lineCount := 0
	err := uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		t, err := lockTransfer(ctx, repos, companyID, transferID)
		if err != nil {
			return err
		}
		if t.Completed {
			return nil
		}
		if err := validateTransferWarehouses(ctx, repos, t.OriginWarehouseID, t.DestinationWarehouseID, companyID); err != nil {
			return err
		}
		lines, err := repos.Transfers.ListLines(ctx, transferID)
		if err != nil {
			return err
		}
		completedAt := uc.now()
		for _, line := range lines {
			if err := uc.executeLine(ctx, repos, t, line, completedAt); err != nil {
				return err
			}
		}
		t.Completed = true
		t.CompletedAt = &completedAt
		lineCount = len(lines)
		return repos.Transfers.Update(ctx, t)
	})
	if err != nil {
		return err
	}
	uc.log.Info().
		Str("transfer_id", transferID).
		Int("lines", lineCount).
		Msg("traslado ejecutado")
	return nil
}

// Delete elimina un traslado. Si estaba completado revierte cada línea en orden inverso (movimientos y
// stock, sin comprobar disponible); uno abierto se descarta sin tocar el libro.
func (uc *TransferWorkflow) Delete(ctx context.Context, companyID, transferID string) error {
	return uc.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		t, err := lockTransfer(ctx, repos, companyID, transferID)
		if err != nil {
			return err
		}
		lines, err := repos.Transfers.ListLines(ctx, transferID)
		if err != nil {
			return err
		}
		for i := len(lines) - 1; i >= 0; i-- {
			line := lines[i]
			if t.Completed {
				if err := uc.reverseLine(ctx, repos, t, line); err != nil {
					return err
				}
			}
			if err := repos.Transfers.DeleteLine(ctx, line.ID); err != nil {
				return err
			}
		}
		return repos.Transfers.Delete(ctx, transferID)
	})
}

func (uc *TransferWorkflow) executeLine(ctx context.Context, repos Repositories, t *entity.StockTransfer, line *entity.StockTransferLine, at time.Time) error {
	if err := lockPair(ctx, repos, t.OriginWarehouseID, t.DestinationWarehouseID, line.Reference); err != nil {
		return err
	}
	origin, err := repos.Stocks.GetForUpdate(ctx, t.OriginWarehouseID, line.Reference)
	if err != nil {
		return err
	}
	if origin.Available.LessThan(line.Quantity) {
		return fmt.Errorf("%w: %s en bodega %s (disponible %s, solicitado %s)",
			domain.ErrInsufficientStock, line.Reference, t.OriginWarehouseID, origin.Available, line.Quantity)
	}
	if err := uc.moveStock(ctx, repos, t.OriginWarehouseID, t.DestinationWarehouseID, line.Reference, line.ProductID, line.Quantity); err != nil {
		return err
	}
	for _, e := range transferEntries(t, line, at) {
		if err := uc.writer.Upsert(ctx, repos, e); err != nil {
			return err
		}
	}
	return uc.hooks.Fire(ctx, HookEvent{
		Point:                  HookTransferStock,
		WarehouseID:            t.OriginWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		Reference:              line.Reference,
		ProductID:              line.ProductID,
		Quantity:               line.Quantity,
		DocumentType:           entity.DocumentTypeTransfer,
		DocumentID:             t.ID,
	})
}

func (uc *TransferWorkflow) reverseLine(ctx context.Context, repos Repositories, t *entity.StockTransfer, line *entity.StockTransferLine) error {
	if err := uc.hooks.Fire(ctx, HookEvent{
		Point:                  HookDeleteTransferLine,
		WarehouseID:            t.OriginWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		Reference:              line.Reference,
		ProductID:              line.ProductID,
		Quantity:               line.Quantity,
		DocumentType:           entity.DocumentTypeTransfer,
		DocumentID:             t.ID,
	}); err != nil {
		return err
	}
	if err := lockPair(ctx, repos, t.OriginWarehouseID, t.DestinationWarehouseID, line.Reference); err != nil {
		return err
	}
	for _, wh := range []string{t.OriginWarehouseID, t.DestinationWarehouseID} {
		if err := uc.writer.Remove(ctx, repos, wh, line.Reference, entity.DocumentTypeTransfer, t.ID); err != nil {
			return err
		}
	}
	return uc.moveStock(ctx, repos, t.OriginWarehouseID, t.DestinationWarehouseID, line.Reference, line.ProductID, line.Quantity.Neg())
}

// moveStock resta qty del stock de origen y lo suma al de destino, recalculando el disponible.
func (uc *TransferWorkflow) moveStock(ctx context.Context, repos Repositories, from, to, reference, productID string, qty decimal.Decimal) error {
	src, err := repos.Stocks.GetForUpdate(ctx, from, reference)
	if err != nil {
		return err
	}
	dst, err := repos.Stocks.GetForUpdate(ctx, to, reference)
	if err != nil {
		return err
	}
	now := uc.now()
	src.Quantity = src.Quantity.Sub(qty)
	dst.Quantity = dst.Quantity.Add(qty)
	for _, s := range []*entity.Stock{src, dst} {
		if s.ProductID == "" {
			s.ProductID = productID
		}
		s.RecalculateAvailable()
		s.UpdatedAt = now
		if err := repos.Stocks.Upsert(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (uc *TransferWorkflow) openTransfer(ctx context.Context, repos Repositories, companyID, transferID string) (*entity.StockTransfer, error) {
	t, err := lockTransfer(ctx, repos, companyID, transferID)
	if err != nil {
		return nil, err
	}
	if t.Completed {
		return nil, fmt.Errorf("%w: traslado %s", domain.ErrAlreadyCompleted, transferID)
	}
	return t, nil
}

// lockTransfer bloquea la cabecera del traslado y verifica la empresa de la bodega de origen.
func lockTransfer(ctx context.Context, repos Repositories, companyID, transferID string) (*entity.StockTransfer, error) {
	t, err := repos.Transfers.GetForUpdate(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
	}
	if _, err := loadWarehouse(ctx, repos, t.OriginWarehouseID, companyID); err != nil {
		return nil, err
	}
	return t, nil
}

func transferLine(ctx context.Context, repos Repositories, transferID, lineID string) (*entity.StockTransferLine, error) {
	line, err := repos.Transfers.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.TransferID != transferID {
		return nil, fmt.Errorf("%w: línea %s", domain.ErrNotFound, lineID)
	}
	return line, nil
}

// transferEntries movimientos espejo de una línea: salida en origen y entrada en destino.
func transferEntries(t *entity.StockTransfer, line *entity.StockTransferLine, at time.Time) []Entry {
	desc := "traslado " + t.ID
	return []Entry{
		{
			WarehouseID:  t.OriginWarehouseID,
			Reference:    line.Reference,
			ProductID:    line.ProductID,
			DocumentType: entity.DocumentTypeTransfer,
			DocumentID:   t.ID,
			Quantity:     line.Quantity.Neg(),
			Mode:         ModeDelta,
			MovedAt:      at,
			Description:  desc,
		},
		{
			WarehouseID:  t.DestinationWarehouseID,
			Reference:    line.Reference,
			ProductID:    line.ProductID,
			DocumentType: entity.DocumentTypeTransfer,
			DocumentID:   t.ID,
			Quantity:     line.Quantity,
			Mode:         ModeDelta,
			MovedAt:      at,
			Description:  desc,
		},
	}
}

// validateTransferWarehouses origen y destino distintos, existentes y de la misma empresa.
func validateTransferWarehouses(ctx context.Context, repos Repositories, originID, destinationID, companyID string) error {
	if originID == "" || destinationID == "" {
		return fmt.Errorf("%w: bodega de origen y destino son obligatorias", domain.ErrInvalidInput)
	}
	if originID == destinationID {
		return fmt.Errorf("%w: origen y destino deben ser bodegas distintas", domain.ErrInvalidInput)
	}
	origin, err := loadWarehouse(ctx, repos, originID, companyID)
	if err != nil {
		return err
	}
	destination, err := loadWarehouse(ctx, repos, destinationID, companyID)
	if err != nil {
		return err
	}
	if origin.CompanyID != destination.CompanyID {
		return fmt.Errorf("%w: las bodegas pertenecen a empresas distintas", domain.ErrInvalidInput)
	}
	return nil
}

// lockPair bloquea las dos series en orden fijo para no cruzar bloqueos entre traslados opuestos.
func lockPair(ctx context.Context, repos Repositories, a, b, reference string) error {
	if b < a {
		a, b = b, a
	}
	if err := repos.Stocks.Lock(ctx, a, reference); err != nil {
		return err
	}
	return repos.Stocks.Lock(ctx, b, reference)
}
