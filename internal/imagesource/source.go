package imagesource

import "sync"

// Preview is a transient resource bound to one blob (for example an in-memory
// URL the console renders). It must be released when the blob is superseded.
type Preview interface {
	URL() string
	Release()
}

// PreviewStore creates previews for blobs.
type PreviewStore interface {
	Create(b *Blob) Preview
}

// Source holds the current blob of a form and its preview.
// At most one blob is current; replacing it releases the previous preview first.
type Source struct {
	mu      sync.Mutex
	store   PreviewStore
	current *Blob
	preview Preview
}

// NewSource creates a source. A nil store disables previews.
func NewSource(store PreviewStore) *Source {
	return &Source{store: store}
}

// Set makes b the current blob. Nil and non-image blobs are ignored and
// Set returns false; the current blob is left untouched in that case.
func (s *Source) Set(b *Blob) bool {
	if b == nil || !IsImage(b.MIME) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked()
	s.current = b
	if s.store != nil {
		s.preview = s.store.Create(b)
	}
	return true
}

// Clear drops the current blob and releases its preview.
func (s *Source) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.current = nil
}

// Current returns the current blob or nil.
func (s *Source) Current() *Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// PreviewURL returns the URL of the current preview, or "" without one.
func (s *Source) PreviewURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return ""
	}
	return s.preview.URL()
}

func (s *Source) releaseLocked() {
	if s.preview != nil {
		s.preview.Release()
		s.preview = nil
	}
}
