package proxy

import "sync"

// Handler is the invocation core's ProxyHandler: it owns the target
// locator, a proxy-scoped attachment namespace (distinct from any
// single invocation's own attachments), and the weak-affinity slot
// interceptors update after a successful call. It satisfies
// invoke.ProxyHandler.
type Handler struct {
	locator *Locator

	mu          sync.Mutex
	attachments map[any]any
	affinity    any
}

// NewHandler builds a Handler for locator, seeding its weak-affinity
// slot from the shared cache if a prior invocation of an equivalent
// locator already recorded one.
func NewHandler(locator *Locator) *Handler {
	h := &Handler{locator: locator}
	if affinity, ok := sharedAffinityCache.get(locator); ok {
		h.affinity = affinity
	}
	return h
}

// GetLocator satisfies invoke.ProxyHandler.
func (h *Handler) GetLocator() any { return h.locator }

// Locator returns the typed locator, for callers that don't need to
// go through the invoke.ProxyHandler interface.
func (h *Handler) Locator() *Locator { return h.locator }

// GetAttachment satisfies invoke.ProxyHandler.
func (h *Handler) GetAttachment(key any) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attachments == nil {
		return nil, false
	}
	v, ok := h.attachments[key]
	return v, ok
}

// SetAttachment satisfies invoke.ProxyHandler.
func (h *Handler) SetAttachment(key any, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attachments == nil {
		h.attachments = make(map[any]any)
	}
	h.attachments[key] = value
}

// RemoveAttachment drops an attachment, returning it if present. Not
// part of invoke.ProxyHandler; exposed for the caller-facing proxy API
// the core's InvocationContext.ProxyAttachment/SetProxyAttachment wrap.
func (h *Handler) RemoveAttachment(key any) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attachments == nil {
		return nil, false
	}
	v, ok := h.attachments[key]
	if ok {
		delete(h.attachments, key)
	}
	return v, ok
}

// SetWeakAffinity satisfies invoke.ProxyHandler. It is called by the
// core exactly once per successful invocation that deposited a
// WeakAffinityKey attachment, immediately after the outermost
// result-pass call returns.
func (h *Handler) SetWeakAffinity(affinity any) {
	h.mu.Lock()
	h.affinity = affinity
	h.mu.Unlock()
	sharedAffinityCache.put(h.locator, affinity)
}

// WeakAffinity returns the most recently applied weak affinity, if any.
func (h *Handler) WeakAffinity() (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.affinity, h.affinity != nil
}
