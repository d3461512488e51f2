package link

// Handle identifies a subscription so it can later be removed without the
// subscriber and publisher holding pointers into each other. This is the
// re-architecture spec.md calls for: "model as a typed publisher holding a
// list of subscribers... subscribers are held by stable handle, not by raw
// back-pointer" (spec.md §9), resolving the C++ transfer-to-handler
// back-pointer problem by construction — nothing in this package ever
// stores a pointer back into its subscriber.
type Handle uint64

// Subject is a synchronous, fan-out publisher of values of type T. Emit
// runs every subscriber to completion, in subscription order, before
// returning — spec.md §5's "event emissions are synchronous" guarantee.
type Subject[T any] struct {
	next        Handle
	subscribers []subscriber[T]
}

type subscriber[T any] struct {
	handle Handle
	fn     func(T)
}

// Subscribe registers fn and returns a Handle that can later be passed to
// Unsubscribe.
func (s *Subject[T]) Subscribe(fn func(T)) Handle {
	s.next++
	h := s.next
	s.subscribers = append(s.subscribers, subscriber[T]{handle: h, fn: fn})
	return h
}

// Unsubscribe removes the subscription identified by h, if present.
func (s *Subject[T]) Unsubscribe(h Handle) {
	for i, sub := range s.subscribers {
		if sub.handle == h {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return
		}
	}
}

// Emit fans v out to every current subscriber, synchronously, in
// subscription order.
func (s *Subject[T]) Emit(v T) {
	for _, sub := range s.subscribers {
		sub.fn(v)
	}
}
