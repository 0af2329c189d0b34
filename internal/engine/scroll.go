package engine

import "ligdichat/client/internal/config"

// ScrollPolicy decides whether a timeline mutation should auto-scroll the
// viewport. It tracks one flag: whether the user is near the bottom. A user
// who scrolled up to read history is never interrupted; a user at the bottom
// follows new messages.
type ScrollPolicy struct {
	threshold  int
	nearBottom bool
}

func NewScrollPolicy() *ScrollPolicy {
	return &ScrollPolicy{
		threshold:  config.ScrollBottomThreshold,
		nearBottom: true,
	}
}

// HandleScroll recomputes the flag from a manual scroll position, given the
// distance in pixels between the viewport and the bottom of the content.
func (p *ScrollPolicy) HandleScroll(distanceFromBottom int) {
	p.nearBottom = distanceFromBottom < p.threshold
}

// OnMutation reports whether a timeline mutation should scroll to bottom.
func (p *ScrollPolicy) OnMutation() bool {
	return p.nearBottom
}

// OnHistoryLoaded always forces a bottom scroll: a freshly opened
// conversation starts at its latest messages regardless of the flag.
func (p *ScrollPolicy) OnHistoryLoaded() bool {
	p.nearBottom = true
	return true
}
