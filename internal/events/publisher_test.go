package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{name: "empty filter matches any event", filter: Filter{}, event: Event{Kind: KindPresence}, want: true},
		{name: "kind filter matches", filter: Filter{Kinds: []Kind{KindPresence}}, event: Event{Kind: KindPresence}, want: true},
		{name: "kind filter rejects", filter: Filter{Kinds: []Kind{KindPresence}}, event: Event{Kind: KindDirectory}, want: false},
		{name: "multiple kinds match any", filter: Filter{Kinds: []Kind{KindDirectory, KindSelection}}, event: Event{Kind: KindSelection}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestPublisherDeliversMatchingEvents(t *testing.T) {
	p := NewPublisher()
	var presence, all int
	cancelPresence, err := p.Subscribe(Filter{Kinds: []Kind{KindPresence}}, func(Event) { presence++ })
	require.NoError(t, err)
	defer cancelPresence()
	cancelAll := p.OnChange(func() { all++ })
	defer cancelAll()

	p.Publish(Event{Kind: KindPresence})
	p.Publish(Event{Kind: KindDirectory})

	require.Equal(t, 1, presence)
	require.Equal(t, 2, all)
	require.Equal(t, 2, p.SubscriberCount())
}

func TestPublisherStampsTime(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &Publisher{now: func() time.Time { return fixed }}
	var got Event
	_, err := p.Subscribe(Filter{}, func(e Event) { got = e })
	require.NoError(t, err)

	p.Publish(Event{Kind: KindSelection, Subject: "u1"})
	require.Equal(t, fixed, got.At)
	require.Equal(t, "u1", got.Subject.String())
}

func TestPublisherCancelIsIdempotent(t *testing.T) {
	var p Publisher
	calls := 0
	cancel := p.OnChange(func() { calls++ })
	cancel()
	cancel()
	p.Publish(Event{Kind: KindDirectory})
	require.Zero(t, calls)
	require.Zero(t, p.SubscriberCount())
}

func TestPublisherRejectsNilHandler(t *testing.T) {
	var p Publisher
	cancel, err := p.Subscribe(Filter{}, nil)
	require.ErrorIs(t, err, ErrNilHandler)
	cancel()
	p.OnChange(nil)()
	require.Zero(t, p.SubscriberCount())
}

func TestPublisherHandlerMayCancelDuringPublish(t *testing.T) {
	var p Publisher
	var cancel func()
	calls := 0
	cancel = p.OnChange(func() {
		calls++
		cancel()
	})
	p.Publish(Event{Kind: KindPresence})
	p.Publish(Event{Kind: KindPresence})
	require.Equal(t, 1, calls)
}

func TestPublisherConcurrentUse(t *testing.T) {
	var p Publisher
	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancel := p.OnChange(func() { count.Add(1) })
			for j := 0; j < 50; j++ {
				p.Publish(Event{Kind: KindPresence})
			}
			cancel()
		}()
	}
	wg.Wait()
	require.Positive(t, count.Load())
	require.Zero(t, p.SubscriberCount())
}
