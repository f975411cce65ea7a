package capture

import "sync"

// Registry tracks which session holds each device. Claiming a device that
// another session holds preempts the holder.
type Registry struct {
	mu      sync.Mutex
	holders map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{holders: make(map[string]*Session)}
}

// claim makes s the holder of device id and returns the previous holder, if any.
func (r *Registry) claim(id string, s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.holders[id]
	r.holders[id] = s
	if prev == s {
		return nil
	}
	return prev
}

// release drops the claim of s on device id. Claims taken over by another
// session are left alone.
func (r *Registry) release(id string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holders[id] == s {
		delete(r.holders, id)
	}
}

// Holder returns the session currently holding device id.
func (r *Registry) Holder(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holders[id]
}

// StopAll stops every session holding a device.
func (r *Registry) StopAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.holders))
	for _, s := range r.holders {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
