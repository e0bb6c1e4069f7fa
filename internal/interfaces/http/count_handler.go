package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CountHandler maneja los conteos de inventario (protegido).
type CountHandler struct {
	uc *inventory.CountWorkflow
}

// NewCountHandler construye el handler.
func NewCountHandler(uc *inventory.CountWorkflow) *CountHandler {
	return &CountHandler{uc: uc}
}

// Create POST /api/counts
func (h *CountHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCountRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	count, err := h.uc.Create(c.UserContext(), inventory.CreateCountInput{
		CompanyID:   GetCompanyID(c),
		WarehouseID: in.WarehouseID,
		Note:        in.Note,
		UserID:      GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(countResponse(count, nil))
}

// Get GET /api/counts/:id
func (h *CountHandler) Get(c *fiber.Ctx) error {
	detail, err := h.uc.Get(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(countResponse(detail.Count, detail.Lines))
}

// AddLine POST /api/counts/:id/lines
func (h *CountHandler) AddLine(c *fiber.Ctx) error {
	var in dto.CountLineRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	line, err := h.uc.AddLine(c.UserContext(), GetCompanyID(c), c.Params("id"), inventory.CountLineInput{
		Reference: in.Reference,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		UserID:    GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(countLineResponse(line))
}

// UpdateLine PUT /api/counts/:id/lines/:lineId
func (h *CountHandler) UpdateLine(c *fiber.Ctx) error {
	var in dto.UpdateLineRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	line, err := h.uc.UpdateLine(c.UserContext(), GetCompanyID(c), c.Params("id"), c.Params("lineId"), in.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(countLineResponse(line))
}

// DeleteLine DELETE /api/counts/:id/lines/:lineId
func (h *CountHandler) DeleteLine(c *fiber.Ctx) error {
	if err := h.uc.DeleteLine(c.UserContext(), GetCompanyID(c), c.Params("id"), c.Params("lineId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Complete POST /api/counts/:id/complete
func (h *CountHandler) Complete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.uc.Complete(c.UserContext(), GetCompanyID(c), id); err != nil {
		return respondError(c, err)
	}
	detail, err := h.uc.Get(c.UserContext(), GetCompanyID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(countResponse(detail.Count, detail.Lines))
}

// Delete DELETE /api/counts/:id
func (h *CountHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), GetCompanyID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func countResponse(count *entity.StockCount, lines []*entity.StockCountLine) dto.CountResponse {
	out := dto.CountResponse{
		ID:          count.ID,
		WarehouseID: count.WarehouseID,
		StartedAt:   count.StartedAt,
		CompletedAt: count.CompletedAt,
		Completed:   count.Completed,
		Note:        count.Note,
		UserID:      count.UserID,
		Lines:       make([]dto.CountLineResponse, 0, len(lines)),
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, countLineResponse(l))
	}
	return out
}

func countLineResponse(l *entity.StockCountLine) dto.CountLineResponse {
	return dto.CountLineResponse{
		ID:         l.ID,
		Reference:  l.Reference,
		ProductID:  l.ProductID,
		Quantity:   l.Quantity,
		RecordedAt: l.RecordedAt,
		UserID:     l.UserID,
	}
}
