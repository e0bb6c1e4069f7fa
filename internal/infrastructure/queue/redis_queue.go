package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
	"github.com/redis/go-redis/v9"
)

// RedisQueue cola diferida sobre un ZSET: el score es RunAt (unix ms) y el miembro el JSON del trabajo.
type RedisQueue struct {
	rdb  *redis.Client
	key  string
	node *snowflake.Node
	now  func() time.Time
}

var _ jobs.Queue = (*RedisQueue)(nil)

// NewRedisQueue crea la cola sobre key; nodeID identifica el generador de IDs.
func NewRedisQueue(rdb *redis.Client, key string, nodeID int64) (*RedisQueue, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return &RedisQueue{rdb: rdb, key: key, node: node, now: time.Now}, nil
}

// Enqueue agenda el trabajo tras delay. Un trabajo reencolado conserva su ID.
func (q *RedisQueue) Enqueue(ctx context.Context, job inventory.Job, delay time.Duration) error {
	if job.ID == 0 {
		job.ID = q.node.Generate().Int64()
	}
	job.RunAt = q.now().Add(delay).UnixMilli()
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("serializar trabajo: %w", err)
	}
	return q.rdb.ZAdd(ctx, q.key, redis.Z{Score: float64(job.RunAt), Member: payload}).Err()
}

// Dequeue reclama hasta limit trabajos vencidos. ZREM decide qué proceso se queda cada miembro.
func (q *RedisQueue) Dequeue(ctx context.Context, now time.Time, limit int) ([]inventory.Job, error) {
	members, err := q.rdb.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Job, 0, len(members))
	for _, m := range members {
		removed, err := q.rdb.ZRem(ctx, q.key, m).Result()
		if err != nil {
			return out, err
		}
		if removed == 0 {
			continue
		}
		var job inventory.Job
		if err := json.Unmarshal([]byte(m), &job); err != nil {
			// miembro corrupto: ya salió de la cola
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// Len trabajos en cola, vencidos o no.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, q.key).Result()
}
