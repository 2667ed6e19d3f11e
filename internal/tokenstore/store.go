// Package tokenstore holds the one piece of client-persisted state: the
// bearer token. A store is a dumb cell that never inspects the token, with
// a change-notification channel so other processes sharing the same slot
// (the "other tab" case) can observe mutations.
package tokenstore

// Key is the well-known slot name the token lives under. There is exactly
// one persisted value per installation.
const Key = "access_token"

// Event tells a subscriber which slot changed.
type Event struct {
	Key string
}

// Store is the single source of truth for the raw token. An empty string
// means no token. Mutations are last-writer-wins; readers must tolerate the
// value changing between reads.
type Store interface {
	Get() string
	Set(token string) error
	Clear() error

	// Subscribe registers a channel that receives an Event whenever the
	// slot changes. Sends are non-blocking: a subscriber that cannot keep
	// up misses events, it is never waited on.
	Subscribe(ch chan<- Event)
	Unsubscribe(ch chan<- Event)
}
