// Package cache содержит кэш меню столовой поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/validation"
)

const menuTTL = 10 * time.Minute

// MenuCache кэширует меню столовой за период. Нулевой указатель и кэш без
// клиента безопасны: все операции превращаются в промахи.
type MenuCache struct {
	rdb *redis.Client
}

// NewMenuCache подключается к Redis по указанному адресу. Пустой адрес или
// недоступный сервер отключают кэширование.
func NewMenuCache(ctx context.Context, addr string) *MenuCache {
	if addr == "" {
		return &MenuCache{}
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return &MenuCache{}
	}

	return &MenuCache{rdb: rdb}
}

// Enabled сообщает, подключён ли кэш.
func (c *MenuCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

func menuKey(from, to time.Time) string {
	return fmt.Sprintf("mess:menu:%s:%s", from.Format(validation.DateLayout), to.Format(validation.DateLayout))
}

// Get возвращает закэшированное меню за период.
func (c *MenuCache) Get(ctx context.Context, from, to time.Time) ([]model.MenuEntry, bool) {
	if !c.Enabled() {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, menuKey(from, to)).Bytes()
	if err != nil {
		return nil, false
	}

	var entries []model.MenuEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}

	return entries, true
}

// Set сохраняет меню за период.
func (c *MenuCache) Set(ctx context.Context, from, to time.Time, entries []model.MenuEntry) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return
	}

	_ = c.rdb.Set(ctx, menuKey(from, to), data, menuTTL).Err()
}

// Invalidate сбрасывает кэш меню после правок.
func (c *MenuCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	iter := c.rdb.Scan(ctx, 0, "mess:menu:*", 0).Iterator()
	for iter.Next(ctx) {
		_ = c.rdb.Del(ctx, iter.Val()).Err()
	}
}

// Close закрывает соединение с Redis.
func (c *MenuCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
