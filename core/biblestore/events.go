package biblestore

// EventType identifies a store lifecycle event.
type EventType string

const (
	// EventDownloaded fires after a translation database is materialized.
	EventDownloaded EventType = "downloaded"
	// EventDeleted fires after a translation's local file is removed.
	EventDeleted EventType = "deleted"
	// EventCleared fires after ClearAll resets the cache directory.
	EventCleared EventType = "cleared"
)

// Event describes a change to the local translation cache. Events decouple
// the store from interested observers (UI layers, API hubs): no query path
// depends on their delivery.
type Event struct {
	Type        EventType   `json:"type"`
	Translation Translation `json:"translation,omitempty"`
	Path        string      `json:"path,omitempty"`
}

// eventBuffer bounds each subscriber channel. Slow subscribers drop events
// rather than blocking store operations.
const eventBuffer = 16

// Subscribe registers an observer for store events. The returned cancel
// function unregisters the observer and closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, eventBuffer)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// publish delivers an event to all subscribers without blocking.
func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full, drop the event.
		}
	}
}
