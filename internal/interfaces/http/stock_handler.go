package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/export"
)

// StockHandler consultas del libro, conciliación, reconstrucción y eventos de documentos (protegido).
type StockHandler struct {
	query      *inventory.LedgerQuery
	reconciler *inventory.SnapshotReconciler
	rebuild    *inventory.RebuildEngine
	documents  *inventory.DocumentEvents
	stagger    time.Duration
}

// NewStockHandler construye el handler. stagger separa los trabajos de una reconstrucción asíncrona.
func NewStockHandler(query *inventory.LedgerQuery, reconciler *inventory.SnapshotReconciler, rebuild *inventory.RebuildEngine, documents *inventory.DocumentEvents, stagger time.Duration) *StockHandler {
	return &StockHandler{query: query, reconciler: reconciler, rebuild: rebuild, documents: documents, stagger: stagger}
}

// Get GET /api/stock/:warehouseId/:reference
func (h *StockHandler) Get(c *fiber.Ctx) error {
	s, err := h.query.Stock(c.UserContext(), GetCompanyID(c), c.Params("warehouseId"), c.Params("reference"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stockResponse(s))
}

// ByReference GET /api/stock/references/:reference: la referencia en todas las bodegas.
func (h *StockHandler) ByReference(c *fiber.Ctx) error {
	rows, err := h.query.StockByReference(c.UserContext(), GetCompanyID(c), c.Params("reference"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.StockResponse, 0, len(rows))
	for _, s := range rows {
		out = append(out, stockResponse(s))
	}
	return c.JSON(out)
}

// Reconcile POST /api/stock/reconcile
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.ReconcileRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	ctx, companyID := c.UserContext(), GetCompanyID(c)
	if in.WarehouseID != "" {
		if err := h.query.AuthorizeWarehouse(ctx, companyID, in.WarehouseID); err != nil {
			return respondError(c, err)
		}
	}
	if in.ProductID != "" {
		if err := h.query.AuthorizeProduct(ctx, companyID, in.ProductID); err != nil {
			return respondError(c, err)
		}
		n, err := h.reconciler.ReconcileProduct(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"series": n})
	}
	if in.WarehouseID == "" {
		return respondError(c, fmt.Errorf("%w: warehouse_id es obligatorio", domain.ErrInvalidInput))
	}
	s, err := h.reconciler.Reconcile(ctx, in.WarehouseID, in.Reference)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stockResponse(s))
}

// Rebuild POST /api/stock/rebuild: en línea, o un trabajo por producto si async.
func (h *StockHandler) Rebuild(c *fiber.Ctx) error {
	var in dto.RebuildRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	ids := in.ProductIDs
	if in.ProductID != "" {
		ids = append(ids, in.ProductID)
	}
	// Sin productos la reconstrucción es global (mantenimiento del operador)
	for _, id := range ids {
		if err := h.query.AuthorizeProduct(c.UserContext(), GetCompanyID(c), id); err != nil {
			return respondError(c, err)
		}
	}
	if in.Async || len(in.ProductIDs) > 0 {
		n, err := h.rebuild.Schedule(c.UserContext(), ids, h.stagger)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(dto.RebuildScheduledResponse{Jobs: n})
	}
	res, err := h.rebuild.Rebuild(c.UserContext(), in.ProductID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Movements GET /api/stock/movements
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	filter, ok, err := h.movementFilter(c)
	if !ok {
		return err
	}
	rows, err := h.query.Movements(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.MovementListResponse{
		Items: make([]dto.MovementResponse, 0, len(rows)),
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset},
	}
	for _, r := range rows {
		out.Items = append(out.Items, movementResponse(r))
	}
	if out.Page.Limit == 0 {
		out.Page.Limit = inventory.MaxMovementPage
	}
	return c.JSON(out)
}

// Export GET /api/stock/movements/export: mismos filtros, libro xlsx.
func (h *StockHandler) Export(c *fiber.Ctx) error {
	filter, ok, err := h.movementFilter(c)
	if !ok {
		return err
	}
	rows, err := h.query.Movements(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="movimientos.xlsx"`)
	if err := export.WriteMovements(c.Response().BodyWriter(), rows); err != nil {
		return respondError(c, err)
	}
	return nil
}

// DocumentEvent POST /api/stock/document-events: la línea de un documento comercial cambió de cantidad.
func (h *StockHandler) DocumentEvent(c *fiber.Ctx) error {
	var in dto.DocumentEventRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	line := entity.DocumentLine{
		DocumentType: in.DocumentType,
		DocumentID:   in.DocumentID,
		WarehouseID:  in.WarehouseID,
		Reference:    in.Reference,
		ProductID:    in.ProductID,
		StockEffect:  in.StockEffect,
		Quantity:     in.QuantityDelta,
	}
	if in.MovedAt != nil {
		line.MovedAt = *in.MovedAt
	}
	if err := h.query.AuthorizeWarehouse(c.UserContext(), GetCompanyID(c), in.WarehouseID); err != nil {
		return respondError(c, err)
	}
	if err := h.documents.Apply(c.UserContext(), line, in.QuantityDelta); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// RemoveDocument DELETE /api/stock/documents/:type/:id
func (h *StockHandler) RemoveDocument(c *fiber.Ctx) error {
	docType, docID := c.Params("type"), c.Params("id")
	if err := h.query.AuthorizeDocument(c.UserContext(), GetCompanyID(c), docType, docID); err != nil {
		return respondError(c, err)
	}
	if err := h.documents.RemoveDocument(c.UserContext(), docType, docID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *StockHandler) movementFilter(c *fiber.Ctx) (entity.MovementFilter, bool, error) {
	var q dto.MovementQuery
	if err := c.QueryParser(&q); err != nil {
		return entity.MovementFilter{}, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if err := validate.Struct(q); err != nil {
		return entity.MovementFilter{}, false, respondValidation(c, err)
	}
	filter := entity.MovementFilter{
		CompanyID:   GetCompanyID(c),
		WarehouseID: q.WarehouseID,
		Reference:   q.Reference,
		ProductID:   q.ProductID,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	var err error
	if filter.From, err = parseDate(q.From); err != nil {
		return filter, false, respondError(c, err)
	}
	if filter.To, err = parseDate(q.To); err != nil {
		return filter, false, respondError(c, err)
	}
	return filter, true, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: fecha %q", domain.ErrInvalidInput, s)
}

func stockResponse(s *entity.Stock) dto.StockResponse {
	return dto.StockResponse{
		WarehouseID:    s.WarehouseID,
		Reference:      s.Reference,
		ProductID:      s.ProductID,
		Quantity:       s.Quantity,
		Available:      s.Available,
		Reserved:       s.Reserved,
		PendingReceipt: s.PendingReceipt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func movementResponse(v inventory.MovementView) dto.MovementResponse {
	m := v.Movement
	out := dto.MovementResponse{
		ID:           m.ID,
		WarehouseID:  m.WarehouseID,
		Reference:    m.Reference,
		ProductID:    m.ProductID,
		DocumentType: m.DocumentType,
		DocumentID:   m.DocumentID,
		Quantity:     m.Quantity,
		Balance:      m.Balance,
		Description:  m.Description,
		MovedAt:      m.MovedAt,
	}
	if v.Document != nil {
		out.Document = &dto.DocumentResponse{Type: v.Document.Type, ID: v.Document.ID, Title: v.Document.Title, URL: v.Document.URL}
	}
	return out
}
