package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/queue"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Container servicios del motor de stock armados según la configuración.
type Container struct {
	Tx         inventory.TxRunner
	Queue      jobs.Queue
	Locker     jobs.Locker
	Hooks      *inventory.HookRegistry
	Registry   *inventory.DocumentTypeRegistry
	Writer     *inventory.LedgerWriter
	Reconciler *inventory.SnapshotReconciler
	Counts     *inventory.CountWorkflow
	Transfers  *inventory.TransferWorkflow
	Rebuild    *inventory.RebuildEngine
	Documents  *inventory.DocumentEvents
	Query      *inventory.LedgerQuery
	Worker     *jobs.Worker

	closers []func()
}

// Close libera conexiones en orden inverso de apertura.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build abre el almacén (postgres o memoria), la cola y los bloqueos (redis o memoria) y arma los servicios.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		if cfg.Store.SeedFile != "" {
			f, err := os.Open(cfg.Store.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("abrir seed: %w", err)
			}
			err = store.LoadSeed(f)
			_ = f.Close()
			if err != nil {
				return nil, err
			}
		}
		c.Tx = store
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name, log)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			c.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		c.Tx = postgres.NewTxRunner(pool)
	}

	var alerter inventory.InconsistencyAlerter = inventory.NewLogAlerter(log)
	if cfg.Redis.Enabled() {
		rdb, err := queue.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		q, err := queue.NewRedisQueue(rdb, cfg.Redis.QueueKey, cfg.Worker.NodeID)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Queue = q
		c.Locker = queue.NewRedisLocker(rdb)
		alerter = inventory.MultiAlerter{alerter, queue.NewRedisAlerter(rdb, cfg.Redis.AlertChannel, log)}
		log.Info().Str("addr", cfg.Redis.Addr).Str("queue", cfg.Redis.QueueKey).Msg("cola de trabajos en redis")
	} else {
		q, err := memory.NewJobQueue(cfg.Worker.NodeID)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Queue = q
		c.Locker = memory.NewLocker()
	}

	ledgerLog := log.Component("ledger")
	c.Hooks = inventory.NewHookRegistry()
	c.Registry = inventory.NewDocumentTypeRegistry()
	c.Writer = inventory.NewLedgerWriter(ledgerLog)
	c.Reconciler = inventory.NewSnapshotReconciler(c.Tx, c.Hooks, alerter, ledgerLog)
	c.Counts = inventory.NewCountWorkflow(c.Tx, c.Writer, c.Reconciler, c.Hooks, ledgerLog)
	c.Transfers = inventory.NewTransferWorkflow(c.Tx, c.Writer, c.Hooks, ledgerLog)
	c.Rebuild = inventory.NewRebuildEngine(c.Tx, c.Writer, c.Reconciler, c.Hooks, c.Queue, log.Component("rebuild"), cfg.Rebuild.PageSize)
	c.Documents = inventory.NewDocumentEvents(c.Tx, c.Writer, c.Reconciler, c.Queue, ledgerLog)
	c.Query = inventory.NewLedgerQuery(c.Tx, c.Registry)
	c.Worker = jobs.NewWorker(c.Queue, c.Locker, c.Rebuild, c.Reconciler, log.Component("worker"), jobs.Config{
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		LockTTL:      cfg.Worker.LockTTL,
	})
	return c, nil
}
