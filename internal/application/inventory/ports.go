package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Repositories repositorios atados a una misma transacción.
type Repositories struct {
	Movements  repository.MovementRepository
	Stocks     repository.StockRepository
	Counts     repository.CountRepository
	Transfers  repository.TransferRepository
	Warehouses repository.WarehouseRepository
	Products   repository.ProductRepository
	Documents  repository.DocumentLineRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Es reentrante: si ctx ya lleva una transacción abierta, fn se ejecuta dentro de ella sin Begin/Commit
// propios y sin hacer Commit ni Rollback de una transacción que no abrió.
// fn debe propagar el ctx recibido a las llamadas anidadas.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// JobQueue cola asíncrona de trabajos diferidos (reconstrucciones, conciliaciones).
type JobQueue interface {
	Enqueue(ctx context.Context, job Job, delay time.Duration) error
}

// Tipos de trabajo asíncrono.
const (
	JobRebuildProduct   = "rebuild_product"
	JobReconcileProduct = "reconcile_product"
)

// Job trabajo asíncrono; ID lo asigna la cola.
type Job struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	ProductID   string `json:"product_id,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	Reference   string `json:"reference,omitempty"`
	RunAt       int64  `json:"run_at"` // unix ms
	Attempt     int    `json:"attempt"`
}

// Clock reloj inyectable (tests).
type Clock func() time.Time
