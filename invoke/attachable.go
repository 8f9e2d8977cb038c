package invoke

import "sync"

// AttachmentKey is a typed key into an Attachable's attachment map.
// The type parameter keeps callers from needing a cast at the use
// site, mirroring the original's AttachmentKey<T>.
type AttachmentKey[T any] struct {
	name string
}

// NewAttachmentKey creates a distinct attachment key. name is only
// used for diagnostics; identity, not name equality, decides lookups.
func NewAttachmentKey[T any](name string) *AttachmentKey[T] {
	return &AttachmentKey[T]{name: name}
}

func (k *AttachmentKey[T]) String() string {
	return k.name
}

// Attachable is a thread-safe map from attachment key identity to
// value, embedded by InvocationContext and by proxy.Handler. Any party
// may read or write an attachment at any time; callers are responsible
// for not mutating concurrently with a phase that reads it (§5).
type Attachable struct {
	mu   sync.Mutex
	data map[any]any
}

// GetAttachment returns the value under key, or the zero value and
// false if absent.
func GetAttachment[T any](a *Attachable, key *AttachmentKey[T]) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	if a.data == nil {
		return zero, false
	}
	v, ok := a.data[key]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// SetAttachment stores value under key, returning the previous value
// if any.
func SetAttachment[T any](a *Attachable, key *AttachmentKey[T], value T) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	if a.data == nil {
		a.data = make(map[any]any)
	}
	old, had := a.data[key]
	a.data[key] = value
	if !had {
		return zero, false
	}
	return old.(T), true
}

// RemoveAttachment deletes the value under key, returning it if present.
func RemoveAttachment[T any](a *Attachable, key *AttachmentKey[T]) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	if a.data == nil {
		return zero, false
	}
	v, ok := a.data[key]
	if ok {
		delete(a.data, key)
		return v.(T), true
	}
	return zero, false
}
