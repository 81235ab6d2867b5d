package session

import (
	"context"
	"sync"
	"time"

	"github.com/smilemakc/mbflow/internal/infrastructure/logger"
)

// DefaultCapacity is the default bounded queue size per session.
const DefaultCapacity = 1024

// GracePeriod is how long a session with zero local subscribers is kept
// alive (so a reconnecting client can still pick up the tail) after its
// terminal event, before Bus.Close reclaims it.
const GracePeriod = 30 * time.Second

// Mirror is an optional out-of-process sink a Bus mirrors every published
// Event to (internal/infrastructure/cache's Redis client, adapted: a second
// process can XRANGE/XREAD the same ordered log without coupling to the
// scheduler goroutine that produced it).
type Mirror interface {
	Append(ctx context.Context, sessionID string, ev Event) error
}

// Bus is the per-session ordered event queue manager, following
// internal/application/observer.ObserverManager's non-blocking fan-out
// shape but reworked per session: ordering, bounded capacity, and
// terminal-event-never-dropped back-pressure.
type Bus struct {
	mu       sync.Mutex
	sessions map[string]*session
	capacity int
	mirror   Mirror
	logger   *logger.Logger
}

type session struct {
	mu          sync.Mutex
	buf         []Event
	capacity    int
	subscribers map[int]chan Event
	nextSubID   int
	closed      bool
	droppedN    int
	closeTimer  *time.Timer
}

// Option configures a Bus.
type Option func(*Bus)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option { return func(b *Bus) { b.capacity = n } }

// WithMirror attaches an out-of-process mirror sink.
func WithMirror(m Mirror) Option { return func(b *Bus) { b.mirror = m } }

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option { return func(b *Bus) { b.logger = l } }

// NewBus creates an empty Bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		sessions: make(map[string]*session),
		capacity: DefaultCapacity,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bus) getOrCreate(sessionID string) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		s = &session{
			capacity:    b.capacity,
			subscribers: make(map[int]chan Event),
		}
		b.sessions[sessionID] = s
	}
	return s
}

// Publish appends an Event to sessionID's queue and fans it out to every
// current subscriber. Publish never blocks: a full queue drops its oldest
// non-terminal entry (inserting a synthetic status{dropped:n} in its place)
// before appending; Kind.Terminal() events are never dropped.
func (b *Bus) Publish(ctx context.Context, sessionID string, ev Event) {
	ev.SessionID = sessionID
	s := b.getOrCreate(sessionID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.append(ev)
	subs := make([]chan Event, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	terminal := ev.Kind.Terminal()
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// a slow subscriber never blocks Publish; it simply misses this
			// tick and relies on Subscribe's initial backlog replay plus the
			// mirror for anything it lost.
		}
	}

	if b.mirror != nil {
		if err := b.mirror.Append(ctx, sessionID, ev); err != nil && b.logger != nil {
			b.logger.ErrorContext(ctx, "session mirror append failed", "session_id", sessionID, "error", err)
		}
	}

	if terminal {
		b.scheduleClose(sessionID, s)
	}
}

// append must be called with s.mu held.
func (s *session) append(ev Event) {
	if len(s.buf) >= s.capacity {
		s.dropOldestNonTerminal(ev)
	}
	s.buf = append(s.buf, ev)
}

func (s *session) dropOldestNonTerminal(incoming Event) {
	for i, e := range s.buf {
		if e.Kind.Terminal() {
			continue
		}
		s.buf = append(s.buf[:i], s.buf[i+1:]...)
		s.droppedN++
		s.buf = append(s.buf, Event{
			Kind:      KindStatus,
			Timestamp: incoming.Timestamp,
			Data:      map[string]any{"dropped": s.droppedN},
		})
		return
	}
	// every buffered event is terminal (should not happen: capacity >= 1 and
	// a session closes right after its first terminal event), so just grow.
}

// Subscribe returns a channel that replays the session's current backlog
// then streams new events as they're published, plus an unsubscribe func.
// The channel closes when the session's terminal event has been delivered.
func (b *Bus) Subscribe(sessionID string) (<-chan Event, func()) {
	s := b.getOrCreate(sessionID)

	s.mu.Lock()
	ch := make(chan Event, s.capacity)
	for _, ev := range s.buf {
		ch <- ev
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
	terminalAlready := len(s.buf) > 0 && s.buf[len(s.buf)-1].Kind.Terminal()
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		empty := len(s.subscribers) == 0
		s.mu.Unlock()
		if empty {
			b.scheduleClose(sessionID, s)
		}
	}

	if terminalAlready {
		close(ch)
		return ch, func() {}
	}
	return ch, unsubscribe
}

func (b *Bus) scheduleClose(sessionID string, s *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeTimer != nil {
		s.closeTimer.Stop()
	}
	s.closeTimer = time.AfterFunc(GracePeriod, func() {
		s.mu.Lock()
		s.closed = true
		for _, ch := range s.subscribers {
			close(ch)
		}
		s.subscribers = nil
		s.mu.Unlock()

		b.mu.Lock()
		delete(b.sessions, sessionID)
		b.mu.Unlock()
	})
}
