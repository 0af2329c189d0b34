package engine

import "sort"

// Presence statuses as carried by user_status events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// PresenceTracker is the set of user ids currently online, derived purely
// from the latest event per user. Only the engine goroutine mutates it.
type PresenceTracker struct {
	online map[int64]struct{}
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{online: make(map[int64]struct{})}
}

// Set applies one presence transition and reports whether the set changed.
// Re-adding a present id or removing an absent one is a no-op, so duplicate
// deliveries are harmless.
func (p *PresenceTracker) Set(userID int64, status string) bool {
	switch status {
	case StatusOnline:
		if _, ok := p.online[userID]; ok {
			return false
		}
		p.online[userID] = struct{}{}
		return true
	case StatusOffline:
		if _, ok := p.online[userID]; !ok {
			return false
		}
		delete(p.online, userID)
		return true
	}
	return false
}

// Online reports whether the user is currently online.
func (p *PresenceTracker) Online(userID int64) bool {
	_, ok := p.online[userID]
	return ok
}

// List returns the online ids in ascending order.
func (p *PresenceTracker) List() []int64 {
	out := make([]int64, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
