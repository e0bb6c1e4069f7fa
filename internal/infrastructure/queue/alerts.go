package queue

import (
	"context"
	"encoding/json"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisAlerter publica las inconsistencias del libro en un canal pub/sub.
type RedisAlerter struct {
	rdb     *redis.Client
	channel string
	log     *logger.Logger
}

var _ inventory.InconsistencyAlerter = (*RedisAlerter)(nil)

// NewRedisAlerter crea el publicador sobre channel.
func NewRedisAlerter(rdb *redis.Client, channel string, log *logger.Logger) *RedisAlerter {
	return &RedisAlerter{rdb: rdb, channel: channel, log: log}
}

// Alert publica la inconsistencia como JSON. Un fallo de publicación solo se registra.
func (a *RedisAlerter) Alert(ctx context.Context, inc inventory.Inconsistency) {
	payload, err := json.Marshal(inc)
	if err != nil {
		a.log.Error().Err(err).Msg("no se pudo serializar la alerta")
		return
	}
	if err := a.rdb.Publish(ctx, a.channel, payload).Err(); err != nil {
		a.log.Warn().Err(err).Str("channel", a.channel).Msg("no se pudo publicar la alerta")
	}
}
