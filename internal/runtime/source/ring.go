package source

// ring is a fixed-capacity FIFO buffer. Once full, each write evicts the
// oldest entry. It is not safe for concurrent use; Hub guards it.
type ring[T any] struct {
	entries  []T
	capacity int
	head     int
	total    uint64
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring[T]{entries: make([]T, 0, capacity), capacity: capacity}
}

func (r *ring[T]) write(entry T) {
	if len(r.entries) < r.capacity {
		r.entries = append(r.entries, entry)
	} else {
		r.entries[r.head] = entry
	}
	r.head = (r.head + 1) % r.capacity
	r.total++
}

// all returns the buffered entries, oldest first.
func (r *ring[T]) all() []T {
	if len(r.entries) == 0 {
		return nil
	}
	out := make([]T, len(r.entries))
	if len(r.entries) < r.capacity {
		copy(out, r.entries)
		return out
	}
	n := copy(out, r.entries[r.head:])
	copy(out[n:], r.entries[:r.head])
	return out
}

// retain drops every entry for which keep returns false, preserving order.
func (r *ring[T]) retain(keep func(T) bool) int {
	current := r.all()
	kept := make([]T, 0, r.capacity)
	for _, e := range current {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	r.head = len(kept) % r.capacity
	return len(current) - len(kept)
}

func (r *ring[T]) len() int { return len(r.entries) }

// evicted reports how many writes have been pushed out by capacity or
// removed by retain.
func (r *ring[T]) evicted() uint64 { return r.total - uint64(len(r.entries)) }
