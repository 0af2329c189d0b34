package engine

import (
	"sort"
	"time"
)

type typingEntry struct {
	timer *time.Timer
	gen   uint64
}

// TypingTracker holds the emails currently typing in the active conversation.
// Each entry self-expires after ttl unless refreshed. Expiry does not mutate
// the tracker directly: the timer callback reports the expired entry through
// onExpire, and the engine loop calls Expire on its own goroutine, preserving
// the single-writer rule. The generation counter makes a refresh that races
// an already-fired timer keep the entry alive.
type TypingTracker struct {
	ttl      time.Duration
	onExpire func(email string, gen uint64)
	entries  map[string]*typingEntry
}

func NewTypingTracker(ttl time.Duration, onExpire func(email string, gen uint64)) *TypingTracker {
	return &TypingTracker{
		ttl:      ttl,
		onExpire: onExpire,
		entries:  make(map[string]*typingEntry),
	}
}

// Add records or refreshes a typing entry and (re)arms its expiry timer.
func (t *TypingTracker) Add(email string) bool {
	if e, ok := t.entries[email]; ok {
		e.gen++
		e.timer.Stop()
		e.timer = t.arm(email, e.gen)
		return false
	}
	e := &typingEntry{}
	e.timer = t.arm(email, 0)
	t.entries[email] = e
	return true
}

func (t *TypingTracker) arm(email string, gen uint64) *time.Timer {
	return time.AfterFunc(t.ttl, func() {
		t.onExpire(email, gen)
	})
}

// Remove drops an entry on an explicit stop-typing signal.
func (t *TypingTracker) Remove(email string) bool {
	e, ok := t.entries[email]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, email)
	return true
}

// Expire drops an entry whose timer fired, unless it was refreshed after the
// timer was armed.
func (t *TypingTracker) Expire(email string, gen uint64) bool {
	e, ok := t.entries[email]
	if !ok || e.gen != gen {
		return false
	}
	delete(t.entries, email)
	return true
}

// Clear drops every entry, stopping all timers. Used on conversation switch
// and on teardown.
func (t *TypingTracker) Clear() {
	for email, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, email)
	}
}

// List returns the typing emails in stable order.
func (t *TypingTracker) List() []string {
	out := make([]string, 0, len(t.entries))
	for email := range t.entries {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}
