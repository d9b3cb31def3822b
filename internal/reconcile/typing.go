package reconcile

import (
	"sync"
	"time"
)

// typingTracker owns one cancellable debounce task per conversation.
// touch arms (or re-arms) the task; when a task expires without another
// touch, onIdle fires for that conversation.
type typingTracker struct {
	debounce time.Duration
	onIdle   func(conversationID string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTypingTracker(debounce time.Duration, onIdle func(string)) *typingTracker {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &typingTracker{
		debounce: debounce,
		onIdle:   onIdle,
		timers:   map[string]*time.Timer{},
	}
}

// touch reports whether this is the first keystroke of a typing run, i.e.
// whether typing_start should be emitted.
func (t *typingTracker) touch(conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[conversationID]; ok {
		timer.Reset(t.debounce)
		return false
	}
	t.timers[conversationID] = time.AfterFunc(t.debounce, func() {
		t.expire(conversationID)
	})
	return true
}

func (t *typingTracker) expire(conversationID string) {
	t.mu.Lock()
	_, ok := t.timers[conversationID]
	if ok {
		delete(t.timers, conversationID)
	}
	t.mu.Unlock()
	if ok {
		t.onIdle(conversationID)
	}
}

// stop cancels the task and reports whether a typing run was active.
func (t *typingTracker) stop(conversationID string) bool {
	t.mu.Lock()
	timer, ok := t.timers[conversationID]
	if ok {
		timer.Stop()
		delete(t.timers, conversationID)
	}
	t.mu.Unlock()
	return ok
}

func (t *typingTracker) stopAll() {
	t.mu.Lock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.mu.Unlock()
}
