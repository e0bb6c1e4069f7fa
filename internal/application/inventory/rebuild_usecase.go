package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DefaultRebuildPageSize tamaño de página al recorrer líneas de documentos.
const DefaultRebuildPageSize = 1000

// RebuildEngine reconstruye el libro desde cero re-aplicando todas las fuentes que mueven stock.
type RebuildEngine struct {
	tx         TxRunner
	writer     *LedgerWriter
	reconciler *SnapshotReconciler
	hooks      *HookRegistry
	queue      JobQueue
	log        *logger.Logger
	pageSize   int
	now        Clock
}

// NewRebuildEngine construye el motor. queue puede ser nil si no se usa Schedule.
func NewRebuildEngine(tx TxRunner, writer *LedgerWriter, reconciler *SnapshotReconciler, hooks *HookRegistry, queue JobQueue, log *logger.Logger, pageSize int) *RebuildEngine {
	if pageSize <= 0 {
		pageSize = DefaultRebuildPageSize
	}
	return &RebuildEngine{
		tx:         tx,
		writer:     writer,
		reconciler: reconciler,
		hooks:      hooks,
		queue:      queue,
		log:        log,
		pageSize:   pageSize,
		now:        time.Now,
	}
}

// RebuildResult resumen de una reconstrucción.
type RebuildResult struct {
	ProductID     string        `json:"product_id,omitempty"`
	Deleted       int           `json:"deleted_series"`
	DocumentLines int           `json:"document_lines"`
	SourceEntries int           `json:"source_entries"`
	TransferLines int           `json:"transfer_lines"`
	CountLines    int           `json:"count_lines"`
	Series        int           `json:"series"`
	Duration      time.Duration `json:"duration"`
}

// Rebuild borra el libro (o solo el de un producto) y lo regenera en una transacción:
// documentos, fuentes registradas, traslados completados y conteos completados, en ese orden.
// Después recalcula los saldos de cada serie tocada y concilia todas las series afectadas.
func (e *RebuildEngine) Rebuild(ctx context.Context, productID string) (*RebuildResult, error) {
	start := e.now()
	res := &RebuildResult{ProductID: productID}
	err := e.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
		b := &ledgerBatch{writer: e.writer, repos: repos, touched: newKeySet(), locked: newKeySet()}

		deleted, err := repos.Movements.DeleteAll(ctx, productID)
		if err != nil {
			return err
		}
		res.Deleted = len(deleted)

		if err := e.replayDocuments(ctx, repos, productID, b, res); err != nil {
			return err
		}
		for _, src := range e.hooks.Sources() {
			before := b.written
			if err := src.Replay(ctx, repos, productID, b.write); err != nil {
				return fmt.Errorf("fuente %s: %w", src.Name(), err)
			}
			res.SourceEntries += b.written - before
		}
		if err := e.replayTransfers(ctx, repos, productID, b, res); err != nil {
			return err
		}
		if err := e.replayCounts(ctx, repos, productID, b, res); err != nil {
			return err
		}

		for _, k := range b.touched.keys() {
			if err := e.writer.Resequence(ctx, repos, k.WarehouseID, k.Reference, time.Time{}); err != nil {
				return err
			}
		}
		all := newKeySet()
		all.add(deleted...)
		all.add(b.touched.keys()...)
		for _, k := range all.keys() {
			if _, err := e.reconciler.ReconcileIn(ctx, repos, k.WarehouseID, k.Reference); err != nil {
				return err
			}
		}
		res.Series = all.len()
		return nil
	})
	if err != nil {
		e.log.Error().Err(err).Str("product_id", productID).Msg("reconstrucción fallida")
		return nil, err
	}
	res.Duration = e.now().Sub(start)
	e.log.Info().
		Str("product_id", productID).
		Int("document_lines", res.DocumentLines).
		Int("transfer_lines", res.TransferLines).
		Int("count_lines", res.CountLines).
		Int("series", res.Series).
		Dur("duration", res.Duration).
		Msg("libro reconstruido")
	return res, nil
}

// Schedule encola una reconstrucción por producto con retraso creciente (stagger) para repartir la carga.
// Sin productos, encola todos los que controlan stock. Devuelve el número de trabajos encolados.
func (e *RebuildEngine) Schedule(ctx context.Context, productIDs []string, stagger time.Duration) (int, error) {
	if e.queue == nil {
		return 0, fmt.Errorf("%w: no hay cola de trabajos configurada", domain.ErrInvalidInput)
	}
	if len(productIDs) == 0 {
		err := e.tx.Run(ctx, func(ctx context.Context, repos Repositories) error {
			ids, err := repos.Products.ListTrackedIDs(ctx)
			productIDs = ids
			return err
		})
		if err != nil {
			return 0, err
		}
	}
	for i, id := range productIDs {
		job := Job{Kind: JobRebuildProduct, ProductID: id}
		if err := e.queue.Enqueue(ctx, job, time.Duration(i)*stagger); err != nil {
			return i, err
		}
	}
	e.log.Info().Int("products", len(productIDs)).Dur("stagger", stagger).Msg("reconstrucciones encoladas")
	return len(productIDs), nil
}

func (e *RebuildEngine) replayDocuments(ctx context.Context, repos Repositories, productID string, b *ledgerBatch, res *RebuildResult) error {
	types, err := repos.Documents.DocumentTypes(ctx)
	if err != nil {
		return err
	}
	products := newProductCache(repos)
	for _, docType := range types {
		for offset := 0; ; offset += e.pageSize {
			lines, err := repos.Documents.ListStockLines(ctx, docType, productID, e.pageSize, offset)
			if err != nil {
				return err
			}
			for _, l := range lines {
				if !l.IsImmediate() {
					continue
				}
				tracked, err := products.tracked(ctx, l.ProductID, l.Reference)
				if err != nil {
					return err
				}
				if !tracked {
					continue
				}
				if err := b.write(ctx, documentEntry(l, l.SignedQuantity())); err != nil {
					return err
				}
				res.DocumentLines++
			}
			if len(lines) < e.pageSize {
				break
			}
		}
	}
	return nil
}

func (e *RebuildEngine) replayTransfers(ctx context.Context, repos Repositories, productID string, b *ledgerBatch, res *RebuildResult) error {
	transfers, err := repos.Transfers.ListCompleted(ctx)
	if err != nil {
		return err
	}
	for _, t := range transfers {
		if t.CompletedAt == nil {
			continue
		}
		lines, err := repos.Transfers.ListLines(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if productID != "" && line.ProductID != productID {
				continue
			}
			for _, entry := range transferEntries(t, line, *t.CompletedAt) {
				if err := b.write(ctx, entry); err != nil {
					return err
				}
			}
			res.TransferLines++
		}
	}
	return nil
}

func (e *RebuildEngine) replayCounts(ctx context.Context, repos Repositories, productID string, b *ledgerBatch, res *RebuildResult) error {
	counts, err := repos.Counts.ListCompleted(ctx)
	if err != nil {
		return err
	}
	for _, c := range counts {
		lines, err := repos.Counts.ListLines(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, entry := range countEntries(c, lines) {
			if productID != "" && entry.ProductID != productID {
				continue
			}
			if err := b.write(ctx, entry); err != nil {
				return err
			}
			res.CountLines++
		}
	}
	return nil
}

// ledgerBatch escribe filas sin recalcular saldos; la serie se recalcula una sola vez al final.
type ledgerBatch struct {
	writer  *LedgerWriter
	repos   Repositories
	touched *keySet
	locked  *keySet
	written int
}

func (b *ledgerBatch) write(ctx context.Context, e Entry) error {
	k := e.Key()
	if _, ok := b.locked.seen[k]; !ok {
		if err := b.repos.Stocks.Lock(ctx, k.WarehouseID, k.Reference); err != nil {
			return err
		}
		b.locked.add(k)
	}
	_, changed, err := b.writer.write(ctx, b.repos, e)
	if err != nil {
		return err
	}
	if changed {
		b.touched.add(k)
		b.written++
	}
	return nil
}

// productCache evita consultar el mismo producto en cada línea; vive lo que dura una reconstrucción.
type productCache struct {
	repos Repositories
	byKey map[string]bool
}

func newProductCache(repos Repositories) *productCache {
	return &productCache{repos: repos, byKey: make(map[string]bool)}
}

func (c *productCache) tracked(ctx context.Context, productID, reference string) (bool, error) {
	key := productID
	if key == "" {
		key = "ref:" + reference
	}
	if v, ok := c.byKey[key]; ok {
		return v, nil
	}
	var (
		p   *entity.Product
		err error
	)
	if productID != "" {
		p, err = c.repos.Products.GetByID(ctx, productID)
	} else {
		p, err = c.repos.Products.GetByReference(ctx, reference)
	}
	if err != nil {
		return false, err
	}
	v := p != nil && p.StockTracked
	c.byKey[key] = v
	return v, nil
}
