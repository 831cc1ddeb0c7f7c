package bus

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// chanSub складывает события в буферизованный канал; при переполнении
// ведёт себя как медленный клиент (Deliver -> false).
type chanSub struct {
	id string
	ch chan Event
}

func newChanSub(id string, size int) *chanSub {
	return &chanSub{id: id, ch: make(chan Event, size)}
}

func (s *chanSub) ID() string { return s.id }

func (s *chanSub) Deliver(evt Event) bool {
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

func (s *chanSub) drain() []Event {
	var out []Event
	for {
		select {
		case evt := <-s.ch:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestMemoryBus_PublishFanout(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	a := newChanSub("a", 16)
	c := newChanSub("c", 16)
	b.Subscribe("chat-7", a)
	b.Subscribe("chat-7", c)

	require.NoError(t, b.Publish(ctx, "chat-7", Event{Type: TypeChatMessage, Sender: "Bob", Message: "hi"}))

	for _, sub := range []*chanSub{a, c} {
		got := sub.drain()
		require.Len(t, got, 1)
		require.Equal(t, "Bob", got[0].Sender)
		require.Equal(t, "hi", got[0].Message)
	}
}

func TestMemoryBus_PerPublisherOrder(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	sub := newChanSub("a", 64)
	b.Subscribe("chat-7", sub)

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(ctx, "chat-7", Event{Type: TypeChatMessage, Message: fmt.Sprint(i)}))
	}

	got := sub.drain()
	require.Len(t, got, 10)
	for i, evt := range got {
		require.Equal(t, fmt.Sprint(i), evt.Message)
	}
}

func TestMemoryBus_GroupIsolation(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	a := newChanSub("a", 4)
	c := newChanSub("c", 4)
	b.Subscribe("chat-1", a)
	b.Subscribe("chat-2", c)

	require.NoError(t, b.Publish(ctx, "chat-1", Event{Type: TypeUserJoin, Username: "alice"}))

	require.Len(t, a.drain(), 1)
	require.Empty(t, c.drain())
}

func TestMemoryBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	slow := newChanSub("slow", 1)
	fast := newChanSub("fast", 16)
	b.Subscribe("chat-7", slow)
	b.Subscribe("chat-7", fast)

	// переполняем очередь slow; Publish не должен зависнуть
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(ctx, "chat-7", Event{Type: TypeChatMessage, Message: fmt.Sprint(i)}))
	}

	require.Len(t, slow.drain(), 1)
	require.Len(t, fast.drain(), 5)
}

func TestMemoryBus_UnsubscribeIdempotent(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	sub := newChanSub("a", 4)
	b.Subscribe("chat-7", sub)
	b.Subscribe("chat-7", sub) // повторная подписка не дублирует доставку

	require.NoError(t, b.Publish(ctx, "chat-7", Event{Type: TypeChatMessage, Message: "x"}))
	require.Len(t, sub.drain(), 1)

	b.Unsubscribe("chat-7", sub)
	b.Unsubscribe("chat-7", sub)
	b.UnsubscribeAll(sub)

	require.NoError(t, b.Publish(ctx, "chat-7", Event{Type: TypeChatMessage, Message: "y"}))
	require.Empty(t, sub.drain())
}

func TestMemoryBus_UnsubscribeAll(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	sub := newChanSub("a", 8)
	b.Subscribe("chat-1", sub)
	b.Subscribe("chat-2", sub)

	b.UnsubscribeAll(sub)

	require.NoError(t, b.Publish(ctx, "chat-1", Event{Type: TypeChatMessage}))
	require.NoError(t, b.Publish(ctx, "chat-2", Event{Type: TypeChatMessage}))
	require.Empty(t, sub.drain())
}
