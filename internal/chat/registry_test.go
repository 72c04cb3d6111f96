package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/mwhitford/teamdesk/internal/testutil"
	"github.com/mwhitford/teamdesk/internal/types"
	"github.com/stretchr/testify/assert"
)

func recvEvent(t *testing.T, sub *Subscriber) Event {
	t.Helper()

	select {
	case ev, ok := <-sub.Events():
		assert.True(t, ok, "events channel closed unexpectedly")
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscriber) {
	t.Helper()

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastFanOut(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	var subs []*Subscriber
	for i := 0; i < 3; i++ {
		subs = append(subs, r.Subscribe(GlobalRoom, i+1))
	}

	ev := MessageEvent(&types.ChatMessage{Id: 1, Content: "hello"})
	r.Broadcast(GlobalRoom, ev)

	for _, sub := range subs {
		got := recvEvent(t, sub)
		assert.Equal(t, EventTypeMessage, got.Type)
		assert.Equal(t, "hello", got.Message.Content)
	}
}

func TestBroadcastRoomIsolation(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	global := r.Subscribe(GlobalRoom, 1)
	roomA := r.Subscribe("room-a", 2)
	roomB := r.Subscribe("room-b", 3)

	r.Broadcast("room-a", MessageEvent(&types.ChatMessage{Id: 1}))

	got := recvEvent(t, roomA)
	assert.Equal(t, 1, got.Message.Id)

	assertNoEvent(t, global)
	assertNoEvent(t, roomB)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	sub := r.Subscribe(GlobalRoom, 1)
	assert.Equal(t, 1, r.NumSubscribers(GlobalRoom))

	r.Unsubscribe(sub)
	assert.Equal(t, 0, r.NumSubscribers(GlobalRoom))

	// second call is a no-op, not a panic
	r.Unsubscribe(sub)
	r.Unsubscribe(nil)

	_, ok := <-sub.Events()
	assert.False(t, ok, "events channel should be closed after unsubscribe")
}

func TestUnsubscribeNeverSubscribed(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	stray := &Subscriber{
		token:  "stray",
		userId: 1,
		roomId: "room-a",
		events: make(chan Event, 1),
	}

	r.Unsubscribe(stray)

	_, ok := <-stray.Events()
	assert.False(t, ok)
}

func TestBroadcastDropsSlowSubscriber(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	slow := r.Subscribe(GlobalRoom, 1)
	healthy := r.Subscribe(GlobalRoom, 2)

	ev := MessageEvent(&types.ChatMessage{Id: 1})
	for i := 0; i < sendQueueSize; i++ {
		assert.True(t, slow.Send(ev))
	}

	r.Broadcast(GlobalRoom, ev)

	assert.Equal(t, 1, r.NumSubscribers(GlobalRoom), "slow subscriber should be dropped")

	// the healthy one got the event and is still registered
	got := recvEvent(t, healthy)
	assert.Equal(t, 1, got.Message.Id)
}

func TestSendToUser(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	global := r.Subscribe(GlobalRoom, 1)
	roomA := r.Subscribe("room-a", 1)
	other := r.Subscribe("room-a", 2)

	ev := BanEvent(&types.Ban{UserId: 1, Reason: "spam"})
	r.SendToUser(1, ev, GlobalRoom)

	got := recvEvent(t, roomA)
	assert.Equal(t, EventTypeBan, got.Type)
	assert.Equal(t, 1, got.Ban.UserId)

	assertNoEvent(t, global)
	assertNoEvent(t, other)
}

func TestRoomGC(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	sub := r.Subscribe("room-a", 1)
	r.Unsubscribe(sub)

	r.mu.Lock()
	_, exists := r.rooms["room-a"]
	_, indexed := r.byUser[1]
	r.mu.Unlock()

	assert.False(t, exists, "empty room should be removed")
	assert.False(t, indexed, "user index entry should be removed")
}

func TestSubscribeConcurrentWithLastMemberLeaving(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	// churn the room through empty repeatedly: if Subscribe ever lands a
	// subscriber in a roomSet that a concurrent Unsubscribe GC'd, the
	// following broadcast never reaches it
	for i := 0; i < 2000; i++ {
		leaving := r.Subscribe("room-a", 1)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Unsubscribe(leaving)
		}()

		fresh := r.Subscribe("room-a", 2)
		wg.Wait()

		r.Broadcast("room-a", MessageEvent(&types.ChatMessage{Id: i}))

		got := recvEvent(t, fresh)
		assert.Equal(t, i, got.Message.Id)

		r.Unsubscribe(fresh)
	}
}

func TestBroadcastOrderingPerRoom(t *testing.T) {
	const senders = 4
	const perSender = 10

	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	subA := r.Subscribe("room-a", 1)
	subB := r.Subscribe("room-a", 2)

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(sender int) {
			defer wg.Done()
			for seq := 0; seq < perSender; seq++ {
				r.Broadcast("room-a", MessageEvent(&types.ChatMessage{
					UserId: sender,
					Id:     seq,
				}))
			}
		}(s)
	}
	wg.Wait()

	drain := func(sub *Subscriber) []Event {
		var events []Event
		for i := 0; i < senders*perSender; i++ {
			events = append(events, recvEvent(t, sub))
		}
		return events
	}

	gotA := drain(subA)
	gotB := drain(subB)

	// both subscribers observe the same total order
	assert.Equal(t, gotA, gotB)

	// and within it, each sender's events stay in send order
	lastSeq := make(map[int]int)
	for _, ev := range gotA {
		sender := ev.Message.UserId
		if prev, ok := lastSeq[sender]; ok {
			assert.Greater(t, ev.Message.Id, prev, "sender %d events out of order", sender)
		}
		lastSeq[sender] = ev.Message.Id
	}
}

func TestSendAfterClose(t *testing.T) {
	r := NewSubscriptionRegistry(testutil.TestLogger(t))

	sub := r.Subscribe(GlobalRoom, 1)
	r.Unsubscribe(sub)

	assert.False(t, sub.Send(MessageEvent(&types.ChatMessage{Id: 1})))
}
