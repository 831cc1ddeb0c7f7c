package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus — Bus поверх Redis Pub/Sub: группа = канал redis.
// Локальные подписчики держатся во вложенном MemoryBus, redis даёт
// fan-out между процессами. Порядок публикаций одного издателя
// сохраняется (один клиент — одно соединение).
type RedisBus struct {
	rdb   *redis.Client
	local *MemoryBus
	ps    *redis.PubSub

	mu   sync.Mutex
	refs map[string]int // group -> число локальных подписчиков

	done chan struct{}
}

func NewRedisBus(ctx context.Context, rdb *redis.Client) *RedisBus {
	b := &RedisBus{
		rdb:   rdb,
		local: NewMemoryBus(),
		ps:    rdb.Subscribe(ctx), // каналы добавляются по мере подписок
		refs:  make(map[string]int),
		done:  make(chan struct{}),
	}
	go b.receive()
	return b
}

func (b *RedisBus) Subscribe(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.local.Subscribe(group, sub)
	b.refs[group]++
	if b.refs[group] == 1 {
		if err := b.ps.Subscribe(context.Background(), group); err != nil {
			slog.Error("bus: redis subscribe failed", "group", group, "err", err)
		}
	}
}

func (b *RedisBus) Unsubscribe(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.local.mu.Lock()
	removed := b.local.remove(group, sub.ID())
	b.local.mu.Unlock()
	if removed {
		b.release(group)
	}
}

func (b *RedisBus) UnsubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.local.mu.Lock()
	var emptied []string
	for group := range b.local.groups {
		if b.local.remove(group, sub.ID()) {
			emptied = append(emptied, group)
		}
	}
	b.local.mu.Unlock()

	for _, group := range emptied {
		b.release(group)
	}
}

// release вызывается под b.mu; последняя локальная подписка
// снимает и подписку redis.
func (b *RedisBus) release(group string) {
	b.refs[group]--
	if b.refs[group] > 0 {
		return
	}
	delete(b.refs, group)
	if err := b.ps.Unsubscribe(context.Background(), group); err != nil {
		slog.Debug("bus: redis unsubscribe failed", "group", group, "err", err)
	}
}

func (b *RedisBus) Publish(ctx context.Context, group string, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return b.rdb.Publish(ctx, group, payload).Err()
}

func (b *RedisBus) receive() {
	ch := b.ps.Channel()
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				slog.Warn("bus: bad redis payload", "group", msg.Channel, "err", err)
				continue
			}
			b.local.fanout(msg.Channel, evt)
		}
	}
}

func (b *RedisBus) Close() error {
	select {
	case <-b.done:
	default:
		close(b.done)
	}

	return b.ps.Close()
}
