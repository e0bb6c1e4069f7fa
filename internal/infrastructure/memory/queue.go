package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
)

// JobQueue cola de trabajos diferidos en memoria (driver memory y tests).
type JobQueue struct {
	mu   sync.Mutex
	node *snowflake.Node
	jobs []inventory.Job
	now  func() time.Time
}

var _ jobs.Queue = (*JobQueue)(nil)

// NewJobQueue crea la cola; nodeID identifica el generador de IDs (0-1023).
func NewJobQueue(nodeID int64) (*JobQueue, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return &JobQueue{node: node, now: time.Now}, nil
}

// Enqueue guarda el trabajo para ejecutarse tras delay. Un trabajo reencolado conserva su ID.
func (q *JobQueue) Enqueue(_ context.Context, job inventory.Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job.ID == 0 {
		job.ID = q.node.Generate().Int64()
	}
	job.RunAt = q.now().Add(delay).UnixMilli()
	q.jobs = append(q.jobs, job)
	return nil
}

// Dequeue saca hasta limit trabajos vencidos en orden de RunAt.
func (q *JobQueue) Dequeue(_ context.Context, now time.Time, limit int) ([]inventory.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	sort.SliceStable(q.jobs, func(i, j int) bool { return q.jobs[i].RunAt < q.jobs[j].RunAt })
	cutoff := now.UnixMilli()
	n := 0
	for n < len(q.jobs) && n < limit && q.jobs[n].RunAt <= cutoff {
		n++
	}
	out := append([]inventory.Job(nil), q.jobs[:n]...)
	q.jobs = q.jobs[n:]
	return out, nil
}

// Pending copia de los trabajos en cola, en orden de RunAt.
func (q *JobQueue) Pending() []inventory.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := append([]inventory.Job(nil), q.jobs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RunAt < out[j].RunAt })
	return out
}

// Locker bloqueo por clave dentro del proceso (sin TTL).
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ jobs.Locker = (*Locker)(nil)

// NewLocker crea el bloqueo local.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

// Obtain toma la clave o devuelve jobs.ErrLocked si ya está tomada.
func (l *Locker) Obtain(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, jobs.ErrLocked
	}
	l.held[key] = struct{}{}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}
