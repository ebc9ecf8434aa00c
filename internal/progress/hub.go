package progress

import "sync"

const subscriberBuffer = 8

// Hub fans saved records out to watchers of the same learner and lesson.
// Slow subscribers miss updates rather than block publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Record]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Record]struct{})}
}

// Subscribe registers a watcher. The returned cancel func unregisters it and
// closes the channel.
func (h *Hub) Subscribe(learnerID, lessonID string) (<-chan Record, func()) {
	key := recordKey(learnerID, lessonID)
	ch := make(chan Record, subscriberBuffer)

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan Record]struct{})
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], ch)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers rec to current watchers without blocking.
func (h *Hub) Publish(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[recordKey(rec.LearnerID, rec.LessonID)] {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Subscribers reports the number of watchers for a learner and lesson.
func (h *Hub) Subscribers(learnerID, lessonID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[recordKey(learnerID, lessonID)])
}
