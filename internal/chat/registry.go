package chat

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// GlobalRoom is the room id of the single team-wide room. On the wire it
// is a null room scope; internally it is the empty string.
const GlobalRoom = ""

// sendQueueSize bounds each subscriber's event queue. A subscriber whose
// queue is full is dropped rather than allowed to stall a broadcast.
const sendQueueSize = 64

// Subscriber is one connection's registration against a room. Events are
// consumed from Events until the channel is closed by Unsubscribe.
type Subscriber struct {
	token  string
	userId int
	roomId string

	mu     sync.Mutex
	closed bool
	events chan Event
}

func (s *Subscriber) Token() string { return s.token }

func (s *Subscriber) UserId() int { return s.userId }

func (s *Subscriber) RoomId() string { return s.roomId }

func (s *Subscriber) Events() <-chan Event { return s.events }

// Send enqueues an event without blocking. It returns false if the
// subscriber is closed or its queue is full; the caller is expected to
// unsubscribe it in that case.
func (s *Subscriber) Send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// SubscriptionRegistry holds the live subscriber set for each room plus a
// user-id index for targeted notices. Rooms are created on first
// subscribe and removed once their last subscriber leaves.
type SubscriptionRegistry struct {
	mu     sync.Mutex
	rooms  map[string]*roomSet
	byUser map[int]map[*Subscriber]struct{}
	log    *log.Logger
}

// roomSet carries its own lock so a broadcast in one room never blocks
// subscribe/unsubscribe traffic in another.
type roomSet struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

func NewSubscriptionRegistry(logger *log.Logger) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		rooms:  make(map[string]*roomSet),
		byUser: make(map[int]map[*Subscriber]struct{}),
		log:    logger,
	}
}

// Subscribe registers a new subscriber for roomId and returns its handle.
func (r *SubscriptionRegistry) Subscribe(roomId string, userId int) *Subscriber {
	sub := &Subscriber{
		token:  uuid.NewString(),
		userId: userId,
		roomId: roomId,
		events: make(chan Event, sendQueueSize),
	}

	r.mu.Lock()
	room, ok := r.rooms[roomId]
	if !ok {
		room = &roomSet{subs: make(map[*Subscriber]struct{})}
		r.rooms[roomId] = room
	}
	if r.byUser[userId] == nil {
		r.byUser[userId] = make(map[*Subscriber]struct{})
	}
	r.byUser[userId][sub] = struct{}{}

	// insert while still holding r.mu: releasing it first would let a
	// concurrent Unsubscribe of the room's last member GC the roomSet
	// out from under us, stranding this subscriber in an orphaned set
	room.mu.Lock()
	room.subs[sub] = struct{}{}
	room.mu.Unlock()
	r.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscriber and closes its event channel. It is
// idempotent and safe to call concurrently with a broadcast to the same
// room.
func (r *SubscriptionRegistry) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	if userSubs, ok := r.byUser[sub.userId]; ok {
		delete(userSubs, sub)
		if len(userSubs) == 0 {
			delete(r.byUser, sub.userId)
		}
	}

	room, ok := r.rooms[sub.roomId]
	if ok {
		room.mu.Lock()
		delete(room.subs, sub)
		empty := len(room.subs) == 0
		room.mu.Unlock()

		if empty {
			delete(r.rooms, sub.roomId)
		}
	}
	r.mu.Unlock()

	sub.close()
}

// Broadcast delivers ev to every current subscriber of roomId. The room
// lock is held while enqueueing, which serializes broadcasts per room;
// enqueueing never blocks, so a slow consumer costs nothing but its own
// removal.
func (r *SubscriptionRegistry) Broadcast(roomId string, ev Event) {
	r.mu.Lock()
	room, ok := r.rooms[roomId]
	r.mu.Unlock()
	if !ok {
		return
	}

	var dropped []*Subscriber

	room.mu.Lock()
	for sub := range room.subs {
		if !sub.Send(ev) {
			dropped = append(dropped, sub)
		}
	}
	room.mu.Unlock()

	for _, sub := range dropped {
		r.log.Printf("dropping subscriber %s for user %d: send queue full or closed", sub.token, sub.userId)
		r.Unsubscribe(sub)
	}
}

// SendToUser delivers ev to every subscriber belonging to userId,
// regardless of room, skipping any rooms listed in skipRooms. This is
// the direct addressing mode used for targeted ban and unban notices.
func (r *SubscriptionRegistry) SendToUser(userId int, ev Event, skipRooms ...string) {
	r.mu.Lock()
	var targets []*Subscriber
	for sub := range r.byUser[userId] {
		skip := false
		for _, room := range skipRooms {
			if sub.roomId == room {
				skip = true
				break
			}
		}
		if !skip {
			targets = append(targets, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range targets {
		if !sub.Send(ev) {
			r.log.Printf("dropping subscriber %s for user %d: send queue full or closed", sub.token, sub.userId)
			r.Unsubscribe(sub)
		}
	}
}

// NumSubscribers reports the current subscriber count for a room.
func (r *SubscriptionRegistry) NumSubscribers(roomId string) int {
	r.mu.Lock()
	room, ok := r.rooms[roomId]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.subs)
}
