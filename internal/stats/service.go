// Package stats projects confirmation events into per-day dining counters
// that the reporting screens read. It is a downstream consumer; losing or
// replaying an event never affects order state.
package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/kafkax"
	"github.com/canteenhq/go-canteen-dining/internal/redisx"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderConfirmed consumes dining.order.confirmed messages. Events are
// deduplicated by event id so redeliveries do not double-count.
func (s *Service) HandleOrderConfirmed(ctx context.Context, m kafkago.Message) error {
	var env dining.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != dining.EventOrderConfirmed {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "stats", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[dining.OrderConfirmedPayload](env.Payload)
	if err != nil {
		return err
	}

	key := fmt.Sprintf(redisx.KeyDailyStats, p.Date)
	field := fmt.Sprintf("%s:%s", p.MealType, p.ConfirmationType)
	pipe := s.Redis.TxPipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	pipe.Expire(ctx, key, redisx.TTLDailyStats)
	pipe.Set(ctx, dkey, "1", redisx.TTLDedup)
	_, err = pipe.Exec(ctx)
	return err
}
