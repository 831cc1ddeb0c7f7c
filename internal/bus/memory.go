package bus

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryBus — внутрипроцессная реализация Bus.
// Структура как у ws-hub'а: group -> набор подписчиков под RWMutex.
type MemoryBus struct {
	mu     sync.RWMutex
	groups map[string]map[string]Subscriber // group -> subID -> sub
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{groups: make(map[string]map[string]Subscriber)}
}

func (b *MemoryBus) Subscribe(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gs, ok := b.groups[group]
	if !ok {
		gs = make(map[string]Subscriber)
		b.groups[group] = gs
	}
	gs[sub.ID()] = sub
}

func (b *MemoryBus) Unsubscribe(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(group, sub.ID())
}

func (b *MemoryBus) UnsubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for group := range b.groups {
		b.remove(group, sub.ID())
	}
}

// remove вызывается под b.mu; пустая группа удаляется целиком.
func (b *MemoryBus) remove(group, subID string) bool {
	gs, ok := b.groups[group]
	if !ok {
		return false
	}
	if _, ok := gs[subID]; !ok {
		return false
	}
	delete(gs, subID)
	if len(gs) == 0 {
		delete(b.groups, group)
	}
	return true
}

func (b *MemoryBus) Publish(_ context.Context, group string, evt Event) error {
	b.fanout(group, evt)
	return nil
}

func (b *MemoryBus) fanout(group string, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.groups[group] {
		if !sub.Deliver(evt) {
			// переполненный/мёртвый подписчик не должен тормозить остальных
			slog.Debug("bus: drop event", "group", group, "sub", sub.ID(), "type", evt.Type)
		}
	}
}
