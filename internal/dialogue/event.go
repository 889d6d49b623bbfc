package dialogue

import "sync"

// SubscriptionID identifies a listener registered on an Event.
type SubscriptionID uint64

type listener[T any] struct {
	id   SubscriptionID
	fn   func(T)
	once bool
}

// Event is an ordered list of listeners fired in registration order.
// The zero value is ready to use. Listeners subscribed while the event is
// firing wait for the next Fire. Unsubscribing during Fire applies at once,
// so a removed listener later in the round does not run.
type Event[T any] struct {
	mu        sync.Mutex
	listeners []listener[T]
	nextID    SubscriptionID
}

// Subscribe registers fn to run on every Fire.
func (e *Event[T]) Subscribe(fn func(T)) SubscriptionID {
	return e.add(fn, false)
}

// Once registers fn to run on the next Fire only. The listener is detached
// before it runs, so a second Fire issued from inside fn does not reach it.
func (e *Event[T]) Once(fn func(T)) SubscriptionID {
	return e.add(fn, true)
}

func (e *Event[T]) add(fn func(T), once bool) SubscriptionID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.listeners = append(e.listeners, listener[T]{id: e.nextID, fn: fn, once: once})
	return e.nextID
}

// Unsubscribe removes a listener. Returns false if it was not registered.
func (e *Event[T]) Unsubscribe(id SubscriptionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every listener.
func (e *Event[T]) Clear() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}

// Len returns the number of live listeners.
func (e *Event[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Fire invokes every listener with v. Zero listeners is fine.
func (e *Event[T]) Fire(v T) {
	e.mu.Lock()
	if len(e.listeners) == 0 {
		e.mu.Unlock()
		return
	}
	snapshot := make([]listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		if !e.claim(l) {
			continue
		}
		l.fn(v)
	}
}

// claim reports whether l is still registered, detaching it first when it
// is a one-shot listener.
func (e *Event[T]) claim(l listener[T]) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, cur := range e.listeners {
		if cur.id != l.id {
			continue
		}
		if cur.once {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
		}
		return true
	}
	return false
}
