package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// MaxAttempts intentos de un trabajo antes de descartarlo.
const MaxAttempts = 3

// ErrLocked lo devuelve un Locker cuando otro proceso tiene el bloqueo.
var ErrLocked = errors.New("recurso bloqueado por otro worker")

// Queue cola de trabajos diferidos consumida por el worker.
type Queue interface {
	inventory.JobQueue
	// Dequeue saca hasta limit trabajos vencidos (RunAt <= now).
	Dequeue(ctx context.Context, now time.Time, limit int) ([]inventory.Job, error)
}

// Locker bloqueo distribuido por clave con TTL.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Rebuilder reconstrucción por producto.
type Rebuilder interface {
	Rebuild(ctx context.Context, productID string) (*inventory.RebuildResult, error)
}

// Reconciler conciliación de series.
type Reconciler interface {
	ReconcileProduct(ctx context.Context, productID, warehouseID string) (int, error)
}

// Config parámetros del worker.
type Config struct {
	Concurrency  int
	PollInterval time.Duration
	LockTTL      time.Duration
}

// Worker consume la cola con concurrencia acotada; un bloqueo por producto evita dos reconstrucciones
// simultáneas del mismo producto entre procesos.
type Worker struct {
	queue      Queue
	locker     Locker
	rebuilder  Rebuilder
	reconciler Reconciler
	log        *logger.Logger
	cfg        Config
}

// NewWorker construye el worker aplicando valores por defecto.
func NewWorker(queue Queue, locker Locker, rebuilder Rebuilder, reconciler Reconciler, log *logger.Logger, cfg Config) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Worker{queue: queue, locker: locker, rebuilder: rebuilder, reconciler: reconciler, log: log, cfg: cfg}
}

// Run procesa la cola hasta que se cancele ctx.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("concurrency", w.cfg.Concurrency).Dur("poll", w.cfg.PollInterval).Msg("worker de stock iniciado")
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Error().Err(err).Msg("error leyendo la cola de trabajos")
		}
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker de stock detenido")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce saca los trabajos vencidos y los ejecuta con el límite de concurrencia. Devuelve cuántos procesó.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	batch, err := w.queue.Dequeue(ctx, time.Now(), w.cfg.Concurrency*2)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, job := range batch {
		job := job
		g.Go(func() error {
			w.handle(gctx, job)
			return nil
		})
	}
	return len(batch), g.Wait()
}

func (w *Worker) handle(ctx context.Context, job inventory.Job) {
	log := w.log.With().
		Int64("job_id", job.ID).
		Str("kind", job.Kind).
		Str("product_id", job.ProductID).
		Int("attempt", job.Attempt).
		Logger()

	release, err := w.locker.Obtain(ctx, lockKey(job), w.cfg.LockTTL)
	if errors.Is(err, ErrLocked) {
		log.Debug().Msg("producto bloqueado, se reintenta más tarde")
		w.requeue(ctx, job, w.cfg.PollInterval, false)
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			w.requeue(ctx, job, 0, false)
			return
		}
		log.Error().Err(err).Msg("no se pudo obtener el bloqueo")
		w.requeue(ctx, job, w.backoff(job), true)
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("no se pudo liberar el bloqueo")
		}
	}()

	start := time.Now()
	if err := w.execute(ctx, job); err != nil {
		if ctx.Err() != nil {
			// Apagado: el trabajo vuelve a la cola sin gastar intento
			log.Info().Msg("trabajo interrumpido, se devuelve a la cola")
			w.requeue(ctx, job, 0, false)
			return
		}
		log.Error().Err(err).Msg("trabajo fallido")
		w.requeue(ctx, job, w.backoff(job), true)
		return
	}
	log.Info().Dur("duration", time.Since(start)).Msg("trabajo completado")
}

func (w *Worker) execute(ctx context.Context, job inventory.Job) error {
	switch job.Kind {
	case inventory.JobRebuildProduct:
		_, err := w.rebuilder.Rebuild(ctx, job.ProductID)
		return err
	case inventory.JobReconcileProduct:
		_, err := w.reconciler.ReconcileProduct(ctx, job.ProductID, job.WarehouseID)
		return err
	default:
		return fmt.Errorf("tipo de trabajo desconocido: %s", job.Kind)
	}
}

func (w *Worker) requeue(ctx context.Context, job inventory.Job, delay time.Duration, countAttempt bool) {
	if countAttempt {
		job.Attempt++
		if job.Attempt >= MaxAttempts {
			w.log.Error().Int64("job_id", job.ID).Str("kind", job.Kind).Str("product_id", job.ProductID).
				Msg("trabajo descartado tras agotar reintentos")
			return
		}
	}
	// La cola ya retiró el trabajo al reclamarlo; el reencolado no depende de ctx
	if err := w.queue.Enqueue(context.WithoutCancel(ctx), job, delay); err != nil {
		w.log.Error().Err(err).Int64("job_id", job.ID).Msg("no se pudo reencolar el trabajo")
	}
}

func (w *Worker) backoff(job inventory.Job) time.Duration {
	return time.Duration(job.Attempt+1) * w.cfg.PollInterval * 2
}

func lockKey(job inventory.Job) string {
	return "stock:product:" + job.ProductID
}
