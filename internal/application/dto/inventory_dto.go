package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateCountRequest body para POST /api/counts.
type CreateCountRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required"`
	Note        string `json:"note" validate:"max=500"`
}

// CountLineRequest body para POST /api/counts/:id/lines.
type CountLineRequest struct {
	Reference string          `json:"reference" validate:"required"`
	ProductID string          `json:"product_id,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// UpdateLineRequest body para PUT de una línea de conteo o traslado.
type UpdateLineRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// CountLineResponse línea de conteo.
type CountLineResponse struct {
	ID         string          `json:"id"`
	Reference  string          `json:"reference"`
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	RecordedAt time.Time       `json:"recorded_at"`
	UserID     string          `json:"user_id,omitempty"`
}

// CountResponse conteo con sus líneas.
type CountResponse struct {
	ID          string              `json:"id"`
	WarehouseID string              `json:"warehouse_id"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Completed   bool                `json:"completed"`
	Note        string              `json:"note,omitempty"`
	UserID      string              `json:"user_id,omitempty"`
	Lines       []CountLineResponse `json:"lines"`
}

// TransferRequest body para POST/PUT /api/transfers.
type TransferRequest struct {
	OriginWarehouseID      string `json:"origin_warehouse_id" validate:"required"`
	DestinationWarehouseID string `json:"destination_warehouse_id" validate:"required,nefield=OriginWarehouseID"`
	Note                   string `json:"note" validate:"max=500"`
}

// TransferLineRequest body para POST /api/transfers/:id/lines.
type TransferLineRequest struct {
	Reference string          `json:"reference" validate:"required"`
	ProductID string          `json:"product_id,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// TransferLineResponse línea de traslado.
type TransferLineResponse struct {
	ID         string          `json:"id"`
	Reference  string          `json:"reference"`
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	RecordedAt time.Time       `json:"recorded_at"`
	UserID     string          `json:"user_id,omitempty"`
}

// TransferResponse traslado con sus líneas.
type TransferResponse struct {
	ID                     string                 `json:"id"`
	OriginWarehouseID      string                 `json:"origin_warehouse_id"`
	DestinationWarehouseID string                 `json:"destination_warehouse_id"`
	CreatedAt              time.Time              `json:"created_at"`
	CompletedAt            *time.Time             `json:"completed_at,omitempty"`
	Completed              bool                   `json:"completed"`
	Note                   string                 `json:"note,omitempty"`
	UserID                 string                 `json:"user_id,omitempty"`
	Lines                  []TransferLineResponse `json:"lines"`
}

// StockResponse stock materializado de una referencia en una bodega.
type StockResponse struct {
	WarehouseID    string          `json:"warehouse_id"`
	Reference      string          `json:"reference"`
	ProductID      string          `json:"product_id,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	Available      decimal.Decimal `json:"available"`
	Reserved       decimal.Decimal `json:"reserved"`
	PendingReceipt decimal.Decimal `json:"pending_receipt"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ReconcileRequest body para POST /api/stock/reconcile: una serie o todas las de un producto.
type ReconcileRequest struct {
	WarehouseID string `json:"warehouse_id"`
	Reference   string `json:"reference" validate:"required_without=ProductID"`
	ProductID   string `json:"product_id"`
}

// RebuildRequest body para POST /api/stock/rebuild.
type RebuildRequest struct {
	ProductID  string   `json:"product_id"`
	ProductIDs []string `json:"product_ids" validate:"dive,required"`
	Async      bool     `json:"async"`
}

// RebuildScheduledResponse respuesta de una reconstrucción asíncrona.
type RebuildScheduledResponse struct {
	Jobs int `json:"jobs"`
}

// DocumentEventRequest cambio de cantidad en una línea de documento comercial.
type DocumentEventRequest struct {
	DocumentType  string          `json:"document_type" validate:"required"`
	DocumentID    string          `json:"document_id" validate:"required"`
	WarehouseID   string          `json:"warehouse_id" validate:"required"`
	Reference     string          `json:"reference" validate:"required"`
	ProductID     string          `json:"product_id"`
	StockEffect   int             `json:"stock_effect" validate:"min=-2,max=2"`
	QuantityDelta decimal.Decimal `json:"quantity_delta"`
	MovedAt       *time.Time      `json:"moved_at,omitempty"`
}

// MovementQuery filtros de GET /api/stock/movements.
type MovementQuery struct {
	WarehouseID string `query:"warehouse_id"`
	Reference   string `query:"reference"`
	ProductID   string `query:"product_id"`
	From        string `query:"from"` // RFC3339 o YYYY-MM-DD
	To          string `query:"to"`
	Limit       int    `query:"limit" validate:"min=0,max=500"`
	Offset      int    `query:"offset" validate:"min=0"`
}

// DocumentResponse documento de origen resuelto.
type DocumentResponse struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// MovementResponse fila del libro de movimientos.
type MovementResponse struct {
	ID           int64             `json:"id"`
	WarehouseID  string            `json:"warehouse_id"`
	Reference    string            `json:"reference"`
	ProductID    string            `json:"product_id,omitempty"`
	DocumentType string            `json:"document_type,omitempty"`
	DocumentID   string            `json:"document_id,omitempty"`
	Quantity     decimal.Decimal   `json:"quantity"`
	Balance      decimal.Decimal   `json:"balance"`
	Description  string            `json:"description,omitempty"`
	MovedAt      time.Time         `json:"moved_at"`
	Document     *DocumentResponse `json:"document,omitempty"`
}

// MovementListResponse página de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
