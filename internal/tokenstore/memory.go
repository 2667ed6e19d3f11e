package tokenstore

import "sync"

// Memory is an in-process Store. Handing the same *Memory to several
// components models several tabs over one storage slot, which is what the
// tests do.
type Memory struct {
	mu    sync.Mutex
	token string
	subs  map[chan<- Event]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[chan<- Event]struct{})}
}

func (s *Memory) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Memory) Set(token string) error {
	s.mu.Lock()
	s.token = token
	subs := s.snapshotSubs()
	s.mu.Unlock()
	notify(subs)
	return nil
}

func (s *Memory) Clear() error {
	return s.Set("")
}

func (s *Memory) Subscribe(ch chan<- Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[ch] = struct{}{}
}

func (s *Memory) Unsubscribe(ch chan<- Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, ch)
}

func (s *Memory) snapshotSubs() []chan<- Event {
	out := make([]chan<- Event, 0, len(s.subs))
	for ch := range s.subs {
		out = append(out, ch)
	}
	return out
}

func notify(subs []chan<- Event) {
	for _, ch := range subs {
		select {
		case ch <- Event{Key: Key}:
		default:
			// Subscriber is full; it will catch up on its next read.
		}
	}
}
