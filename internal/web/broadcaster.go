package web

import (
	"sync"

	"opticsight/internal/aim"
)

// SolutionBroadcaster fans out per-cycle solutions to stream listeners.
// It keeps the most recent value so new subscribers get an immediate sample.
// Slow subscribers miss samples rather than stall the polling loop.
type SolutionBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan aim.Solution
	nextID   int
	last     aim.Solution
	haveLast bool
	dropped  uint64
}

func NewSolutionBroadcaster() *SolutionBroadcaster {
	return &SolutionBroadcaster{
		subs: make(map[int]chan aim.Solution),
	}
}

func (b *SolutionBroadcaster) Subscribe(buffer int) (int, <-chan aim.Solution) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 4
	}
	ch := make(chan aim.Solution, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last, have := b.last, b.haveLast
	b.mu.Unlock()
	if have {
		ch <- last
	}
	return id, ch
}

func (b *SolutionBroadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *SolutionBroadcaster) Publish(sol aim.Solution) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- sol:
		default:
			b.dropped++
		}
	}
	b.last = sol
	b.haveLast = true
}

// Subscribers returns the listener count and how many sends were skipped.
func (b *SolutionBroadcaster) Subscribers() (n int, dropped uint64) {
	if b == nil {
		return 0, 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs), b.dropped
}
