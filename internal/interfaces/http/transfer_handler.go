package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TransferHandler maneja los traslados entre bodegas (protegido).
type TransferHandler struct {
	uc *inventory.TransferWorkflow
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *inventory.TransferWorkflow) *TransferHandler {
	return &TransferHandler{uc: uc}
}

// Create POST /api/transfers
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	t, err := h.uc.Create(c.UserContext(), transferInput(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(transferResponse(t, nil))
}

// Update PUT /api/transfers/:id
func (h *TransferHandler) Update(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	t, err := h.uc.Update(c.UserContext(), c.Params("id"), transferInput(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transferResponse(t, nil))
}

// Get GET /api/transfers/:id
func (h *TransferHandler) Get(c *fiber.Ctx) error {
	detail, err := h.uc.Get(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transferResponse(detail.Transfer, detail.Lines))
}

// AddLine POST /api/transfers/:id/lines
func (h *TransferHandler) AddLine(c *fiber.Ctx) error {
	var in dto.TransferLineRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	line, err := h.uc.AddLine(c.UserContext(), GetCompanyID(c), c.Params("id"), inventory.TransferLineInput{
		Reference: in.Reference,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		UserID:    GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(transferLineResponse(line))
}

// UpdateLine PUT /api/transfers/:id/lines/:lineId
func (h *TransferHandler) UpdateLine(c *fiber.Ctx) error {
	var in dto.UpdateLineRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	line, err := h.uc.UpdateLine(c.UserContext(), GetCompanyID(c), c.Params("id"), c.Params("lineId"), in.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transferLineResponse(line))
}

// DeleteLine DELETE /api/transfers/:id/lines/:lineId
func (h *TransferHandler) DeleteLine(c *fiber.Ctx) error {
	if err := h.uc.DeleteLine(c.UserContext(), GetCompanyID(c), c.Params("id"), c.Params("lineId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Execute POST /api/transfers/:id/execute
func (h *TransferHandler) Execute(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.uc.Execute(c.UserContext(), GetCompanyID(c), id); err != nil {
		return respondError(c, err)
	}
	detail, err := h.uc.Get(c.UserContext(), GetCompanyID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transferResponse(detail.Transfer, detail.Lines))
}

// Delete DELETE /api/transfers/:id
func (h *TransferHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), GetCompanyID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func transferInput(c *fiber.Ctx, in dto.TransferRequest) inventory.TransferInput {
	return inventory.TransferInput{
		CompanyID:              GetCompanyID(c),
		OriginWarehouseID:      in.OriginWarehouseID,
		DestinationWarehouseID: in.DestinationWarehouseID,
		Note:                   in.Note,
		UserID:                 GetUserID(c),
	}
}

func transferResponse(t *entity.StockTransfer, lines []*entity.StockTransferLine) dto.TransferResponse {
	out := dto.TransferResponse{
		ID:                     t.ID,
		OriginWarehouseID:      t.OriginWarehouseID,
		DestinationWarehouseID: t.DestinationWarehouseID,
		CreatedAt:              t.CreatedAt,
		CompletedAt:            t.CompletedAt,
		Completed:              t.Completed,
		Note:                   t.Note,
		UserID:                 t.UserID,
		Lines:                  make([]dto.TransferLineResponse, 0, len(lines)),
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, transferLineResponse(l))
	}
	return out
}

func transferLineResponse(l *entity.StockTransferLine) dto.TransferLineResponse {
	return dto.TransferLineResponse{
		ID:         l.ID,
		Reference:  l.Reference,
		ProductID:  l.ProductID,
		Quantity:   l.Quantity,
		RecordedAt: l.RecordedAt,
		UserID:     l.UserID,
	}
}
