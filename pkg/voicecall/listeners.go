package voicecall

import (
	"slices"
	"sync"
)

// Listeners is a listener table keyed by event name. Client implementations
// embed it to provide [Client.On]. The zero value is ready to use and safe
// for concurrent use.
type Listeners struct {
	mu      sync.Mutex
	nextID  uint64
	byEvent map[Event][]entry
}

type entry struct {
	id uint64
	l  Listener
}

// On registers l for event e. Listeners for the same event are invoked in
// registration order.
func (t *Listeners) On(e Event, l Listener) Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byEvent == nil {
		t.byEvent = make(map[Event][]entry)
	}
	t.nextID++
	id := t.nextID
	t.byEvent[e] = append(t.byEvent[e], entry{id: id, l: l})
	return &subscription{table: t, event: e, id: id}
}

// Emit invokes every listener registered for d.Event. The table lock is not
// held while listeners run, so a listener may unsubscribe itself.
func (t *Listeners) Emit(d EventData) {
	t.mu.Lock()
	entries := slices.Clone(t.byEvent[d.Event])
	t.mu.Unlock()

	for _, e := range entries {
		e.l(d)
	}
}

// Count returns the number of listeners registered for e.
func (t *Listeners) Count(e Event) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byEvent[e])
}

func (t *Listeners) remove(e Event, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byEvent[e] = slices.DeleteFunc(t.byEvent[e], func(en entry) bool {
		return en.id == id
	})
}

type subscription struct {
	table *Listeners
	event Event
	id    uint64
	once  sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.table.remove(s.event, s.id)
	})
}
