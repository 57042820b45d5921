// internal/sched/queue.go

package sched

import (
	"fmt"
	"strings"
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// PreemptMode selects what Push does when the new entry outranks the top.
type PreemptMode int

const (
	// InsertAhead places the new entry in priority order; nothing is dropped.
	InsertAhead PreemptMode = iota
	// EvictTop discards the current top when the new entry's priority is
	// equal or higher.
	EvictTop
)

func (m PreemptMode) String() string {
	if m == EvictTop {
		return "evict-top"
	}
	return "insert-ahead"
}

func ParsePreemptMode(s string) (PreemptMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insert-ahead":
		return InsertAhead, nil
	case "evict-top":
		return EvictTop, nil
	default:
		return InsertAhead, fmt.Errorf("unknown preemption mode %q", s)
	}
}

// Queue is a priority queue that is FIFO within one priority. It is safe
// for concurrent use.
type Queue[T any] struct {
	mu   sync.Mutex
	mode PreemptMode
	rbt  *redblacktree.Tree // entries ordered by (priority, seq)
	seq  uint64             // insertion counter, breaks priority ties
}

func NewQueue[T any](mode PreemptMode) *Queue[T] {
	return &Queue[T]{
		mode: mode,
		rbt:  redblacktree.NewWith(cmp),
	}
}

// Push inserts item. In EvictTop mode it returns the evicted previous top
// and the priority it was queued with.
func (q *Queue[T]) Push(p Priority, item T) (evicted T, evictedPri Priority, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.mode == EvictTop {
		if node := q.rbt.Left(); node != nil && p <= node.Key.(entryKey).priority {
			key := node.Key.(entryKey)
			evicted, evictedPri, ok = node.Value.(T), key.priority, true
			q.rbt.Remove(key)
		}
	}

	q.seq++
	q.rbt.Put(entryKey{priority: p, seq: q.seq}, item)
	return evicted, evictedPri, ok
}

// Pop removes and returns the entry with the smallest (priority, seq).
func (q *Queue[T]) Pop() (item T, p Priority, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	node := q.rbt.Left()
	if node == nil {
		return item, 0, false
	}
	key := node.Key.(entryKey)
	q.rbt.Remove(key)
	return node.Value.(T), key.priority, true
}

// Top returns the next entry without removing it.
func (q *Queue[T]) Top() (item T, p Priority, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	node := q.rbt.Left()
	if node == nil {
		return item, 0, false
	}
	return node.Value.(T), node.Key.(entryKey).priority, true
}

func (q *Queue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rbt.Empty()
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rbt.Size()
}

// Drain removes every entry, in order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, 0, q.rbt.Size())
	for node := q.rbt.Left(); node != nil; node = q.rbt.Left() {
		out = append(out, node.Value.(T))
		q.rbt.Remove(node.Key)
	}
	return out
}

// entryKey is used as a key in the red-black tree.
type entryKey struct {
	priority Priority
	seq      uint64
}

// cmp orders entryKeys by priority, then by insertion.
func cmp(a, b any) int {
	ka, kb := a.(entryKey), b.(entryKey)
	switch {
	case ka.priority < kb.priority:
		return -1
	case ka.priority > kb.priority:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}
