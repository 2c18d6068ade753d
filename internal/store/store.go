package store

// Store defines the interface for collecting results and subscribing to them.
//
// Store implementations must be safe for concurrent access. Results are
// addressed by a zero-based slot index fixed at construction time.
type Store[T any] interface {
	// Put stores a result in the given slot and notifies all subscribers.
	// A later Put to the same slot replaces the previous value.
	Put(index int, result T) error

	// Results returns the stored results in slot order, skipping empty slots.
	// The returned slice is a snapshot; modifications do not affect the store.
	Results() []T

	// Len returns the number of filled slots.
	Len() int

	// Subscribe returns a channel that receives every stored result.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan T

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan T)
}
