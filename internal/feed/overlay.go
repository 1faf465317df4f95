package feed

import (
	"sync"
	"time"
)

// DefaultOverlaySize bounds how many pushed records are held ahead of the
// fetched page.
const DefaultOverlaySize = 10

type overlayItem[T any] struct {
	item T
	at   time.Time
}

// Overlay is a small newest-first list of pushed records shown ahead of
// the fetched page until a fetch reflects them. Records are unique by id;
// the oldest record is dropped when the overlay is full.
type Overlay[T any] struct {
	id   func(T) string
	size int

	mu    sync.Mutex
	items []overlayItem[T]
}

// NewOverlay returns an empty overlay holding at most size records.
func NewOverlay[T any](size int, id func(T) string) *Overlay[T] {
	if size < 1 {
		size = DefaultOverlaySize
	}
	return &Overlay[T]{id: id, size: size}
}

// Add records item as received at at. It returns false when a record with
// the same id is already held.
func (o *Overlay[T]) Add(item T, at time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.id(item)
	for _, it := range o.items {
		if o.id(it.item) == id {
			return false
		}
	}

	o.items = append([]overlayItem[T]{{item: item, at: at}}, o.items...)
	if len(o.items) > o.size {
		o.items = o.items[:o.size]
	}
	return true
}

// Items returns the held records, newest first.
func (o *Overlay[T]) Items() []T {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]T, len(o.items))
	for i, it := range o.items {
		out[i] = it.item
	}
	return out
}

// Len returns the number of held records.
func (o *Overlay[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// Has reports whether a record with id is held.
func (o *Overlay[T]) Has(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.indexLocked(id) >= 0
}

// Remove drops the record with id.
func (o *Overlay[T]) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.indexLocked(id)
	if i < 0 {
		return false
	}
	o.items = append(o.items[:i], o.items[i+1:]...)
	return true
}

// Update replaces the record with id by fn(record).
func (o *Overlay[T]) Update(id string, fn func(T) T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.indexLocked(id)
	if i < 0 {
		return false
	}
	o.items[i].item = fn(o.items[i].item)
	return true
}

// UpdateAll applies fn to every held record.
func (o *Overlay[T]) UpdateAll(fn func(T) T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.items {
		o.items[i].item = fn(o.items[i].item)
	}
}

// ClearBefore drops records received before t, which a fetch started at
// t already reflects.
func (o *Overlay[T]) ClearBefore(t time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.items[:0]
	for _, it := range o.items {
		if !it.at.Before(t) {
			kept = append(kept, it)
		}
	}
	o.items = kept
}

// Clear drops every record.
func (o *Overlay[T]) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = nil
}

// Merge puts the held records ahead of page, skipping those page already
// contains. extra is the number of held records page did not contain.
func (o *Overlay[T]) Merge(page []T) (merged []T, extra int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	inPage := make(map[string]bool, len(page))
	for _, item := range page {
		inPage[o.id(item)] = true
	}

	merged = make([]T, 0, len(o.items)+len(page))
	for _, it := range o.items {
		if inPage[o.id(it.item)] {
			continue
		}
		merged = append(merged, it.item)
		extra++
	}
	merged = append(merged, page...)
	return merged, extra
}

func (o *Overlay[T]) indexLocked(id string) int {
	for i, it := range o.items {
		if o.id(it.item) == id {
			return i
		}
	}
	return -1
}

// dedupe returns items without repeated ids, keeping the first occurrence.
func dedupe[T any](items []T, id func(T) string) []T {
	seen := make(map[string]bool, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key := id(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
