package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/redisx"
)

// Cache is the read-through cache in front of the menu store. It is a
// performance shortcut only; a miss or an error always falls back to the
// store.
type Cache interface {
	Get(ctx context.Context, date string, meal dining.MealType) (*dining.Menu, bool)
	Set(ctx context.Context, m *dining.Menu)
}

type RedisCache struct {
	RDB *redis.Client
	TTL time.Duration
}

func (c *RedisCache) Get(ctx context.Context, date string, meal dining.MealType) (*dining.Menu, bool) {
	key := fmt.Sprintf(redisx.KeyMenu, date, meal)
	s, err := c.RDB.Get(ctx, key).Result()
	if err != nil || s == "" {
		return nil, false
	}
	var m dining.Menu
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	return &m, true
}

func (c *RedisCache) Set(ctx context.Context, m *dining.Menu) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyMenu, m.Date, m.MealType)
	_ = c.RDB.Set(ctx, key, b, c.TTL).Err()
}

// NopCache disables caching; used in tests and when redis is absent.
type NopCache struct{}

func (NopCache) Get(context.Context, string, dining.MealType) (*dining.Menu, bool) { return nil, false }
func (NopCache) Set(context.Context, *dining.Menu)                                {}
