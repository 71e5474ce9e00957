package store

import (
	"context"
	"sync"
)

// Stream is the read side of an Observable.
type Stream[T any] interface {
	Value() T
	Subscribe(ctx context.Context) <-chan T
}

// Observable holds the latest snapshot of a value and pushes every new
// snapshot to its subscribers. Snapshots are replaced, never mutated.
type Observable[T any] struct {
	mu    sync.RWMutex
	value T
	subs  map[chan T]struct{}
}

// NewObservable returns an Observable holding initial.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value: initial,
		subs:  make(map[chan T]struct{}),
	}
}

// Value returns the current snapshot.
func (o *Observable[T]) Value() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Subscribe returns a channel that receives the current snapshot and then
// every later one. A subscriber that falls behind only sees the newest
// snapshot. The channel is closed when ctx is done.
func (o *Observable[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	o.mu.Lock()
	ch <- o.value
	o.subs[ch] = struct{}{}
	o.mu.Unlock()

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		delete(o.subs, ch)
		close(ch)
		o.mu.Unlock()
	}()
	return ch
}

// Set replaces the snapshot and notifies subscribers.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = v
	o.publish()
}

// Update applies fn to the current snapshot and stores the result atomically.
// fn must return a new value instead of mutating its argument.
func (o *Observable[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = fn(o.value)
	o.publish()
	return o.value
}

// publish must be called with mu held.
func (o *Observable[T]) publish() {
	for ch := range o.subs {
		// drop the stale snapshot, if any, so the send never blocks
		select {
		case <-ch:
		default:
		}
		ch <- o.value
	}
}

// SubscriberCount returns the number of live subscriptions.
func (o *Observable[T]) SubscriberCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}
