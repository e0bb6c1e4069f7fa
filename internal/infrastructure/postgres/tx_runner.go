package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// Querier lo cumplen *pgxpool.Pool y pgx.Tx: los repositorios funcionan con cualquiera de los dos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Si ctx ya lleva una transacción de este runner, fn corre dentro de ella y el Commit/Rollback
// queda a cargo de quien la abrió.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repositories) error) error {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx, NewRepositories(tx))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return persistenceError("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx, NewRepositories(tx)); err != nil {
		if isConcurrencyConflict(err) {
			return persistenceError("conflicto de concurrencia, reintentar", err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return persistenceError("commit", err)
	}
	return nil
}

// NewRepositories arma el juego de repositorios sobre un pool o una tx.
func NewRepositories(q Querier) inventory.Repositories {
	return inventory.Repositories{
		Movements:  NewMovementRepository(q),
		Stocks:     NewStockRepository(q),
		Counts:     NewCountRepository(q),
		Transfers:  NewTransferRepository(q),
		Warehouses: NewWarehouseRepository(q),
		Products:   NewProductRepository(q),
		Documents:  NewDocumentLineRepository(q),
	}
}
