package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/events"
)

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestMemoryBusPatternDelivery(t *testing.T) {
	rq := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewMemoryBus(0)
	all, err := bus.Subscribe(ctx, events.Pattern)
	rq.NoError(err)
	sent, err := bus.Subscribe(ctx, domain.EventOfferSent.EventChannel())
	rq.NoError(err)

	rq.NoError(bus.Publish(ctx, domain.EventTradeCompleted.EventChannel(), []byte("a")))
	rq.NoError(bus.Publish(ctx, domain.EventOfferSent.EventChannel(), []byte("b")))

	rq.Equal([]byte("a"), receive(t, all))
	rq.Equal([]byte("b"), receive(t, all))
	rq.Equal([]byte("b"), receive(t, sent))
	rq.Empty(sent)
}

func TestMemoryBusSubscriptionClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := events.NewMemoryBus(0)
	ch, err := bus.Subscribe(ctx, "x")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestMemoryBusStreamTrimsAndPages(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	bus := events.NewMemoryBus(3)
	for _, p := range []string{"1", "2", "3", "4"} {
		rq.NoError(bus.StreamAppend(ctx, "s", []byte(p)))
	}

	first, err := bus.StreamRead(ctx, "s", "0", 2)
	rq.NoError(err)
	rq.Len(first, 2)
	rq.Equal([]byte("2"), first[0].Payload)
	rq.Equal([]byte("3"), first[1].Payload)

	rest, err := bus.StreamRead(ctx, "s", first[1].ID, 10)
	rq.NoError(err)
	rq.Len(rest, 1)
	rq.Equal([]byte("4"), rest[0].Payload)

	_, err = bus.StreamRead(ctx, "s", "nope", 1)
	rq.Error(err)
}

func TestPublisherRoundTrip(t *testing.T) {
	rq := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewMemoryBus(0)
	live, err := bus.Subscribe(ctx, events.Pattern)
	rq.NoError(err)

	pub := events.NewPublisher(bus, nil)
	ev := domain.NewEvent(domain.EventOfferSent, time.Unix(1700000000, 0))
	ev.TradeID = 9001
	pub.Publish(ctx, ev)

	var got domain.Event
	rq.NoError(json.Unmarshal(receive(t, live), &got))
	rq.Equal(ev.ID, got.ID)
	rq.Equal(int64(9001), got.TradeID)

	page, err := pub.Read(ctx, "", 10)
	rq.NoError(err)
	rq.Len(page.Events, 1)
	rq.Equal(domain.EventOfferSent, page.Events[0].Kind)

	next, err := pub.Read(ctx, page.Next, 10)
	rq.NoError(err)
	rq.Empty(next.Events)
	rq.Equal(page.Next, next.Next)
}
