package mixing

import (
	"log/slog"
	"sync"
)

// layout is the mutex-protected live stream set a mixing session composites
// from. update arrives on the control surface's goroutine; the compositor
// reads the same map on its own ticking goroutine, so every access here is
// gated by mu — the one exception to "media session state is never shared"
// called out for the mixing engine.
type layout struct {
	mu      sync.Mutex
	streams map[string]Stream
	order   []string // insertion order, used to break z_index ties
	log     *slog.Logger
}

func newLayout(log *slog.Logger) *layout {
	return &layout{streams: make(map[string]Stream), log: log}
}

// snapshot returns the current streams ordered by ascending z_index, ties
// broken by insertion order, for the compositor to read without holding mu
// across the (potentially slow) composite pass.
func (l *layout) snapshot() []Stream {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Stream, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.streams[id])
	}
	sortByZIndexStable(out)
	return out
}

// update replaces the live set atomically: ids absent from next are
// removed, ids new in next are added, ids present in both are updated in
// place only if their placement actually changed. A next identical to the
// current set (by id and placement) is a complete no-op: no log lines, no
// mutation, matching the "update with an identical stream set" invariant.
func (l *layout) update(next []Stream) {
	l.mu.Lock()
	defer l.mu.Unlock()

	nextByID := make(map[string]Stream, len(next))
	for _, s := range next {
		nextByID[s.ID] = s
	}

	for id, cur := range l.streams {
		if _, stillPresent := nextByID[id]; !stillPresent {
			delete(l.streams, id)
			l.removeFromOrder(id)
			l.log.Info("mix stream removed", "stream_id", id, "url", cur.URL)
		}
	}

	for _, s := range next {
		cur, existed := l.streams[s.ID]
		switch {
		case !existed:
			l.streams[s.ID] = s
			l.order = append(l.order, s.ID)
			l.log.Info("mix stream added", "stream_id", s.ID, "url", s.URL,
				"x", s.X, "y", s.Y, "width", s.Width, "height", s.Height, "z_index", s.ZIndex)
		case !samePlacement(cur, s):
			l.streams[s.ID] = s
			l.log.Info("mix stream updated", "stream_id", s.ID,
				"x", s.X, "y", s.Y, "width", s.Width, "height", s.Height, "z_index", s.ZIndex)
		default:
			// present in both, placement unchanged: no-op, no log line.
		}
	}
}

func (l *layout) removeFromOrder(id string) {
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

// sortByZIndexStable sorts ascending by ZIndex, preserving the relative
// order of equal-ZIndex elements (their insertion order, since streams
// arrives already in insertion order).
func sortByZIndexStable(streams []Stream) {
	// Simple stable insertion sort: the layout is expected to hold a small
	// number of inputs (single digits), so O(n^2) is not a concern and it
	// keeps the tie-break behavior obvious to read.
	for i := 1; i < len(streams); i++ {
		j := i
		for j > 0 && streams[j-1].ZIndex > streams[j].ZIndex {
			streams[j-1], streams[j] = streams[j], streams[j-1]
			j--
		}
	}
}
