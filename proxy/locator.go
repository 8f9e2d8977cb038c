// Package proxy implements the stand-in side of an invocation: the
// per-proxy handler the core's ProxyHandler contract talks to, the
// target locator it describes, and the weak-affinity cache that lets
// a proxy stick to the server node an interceptor last picked.
package proxy

import (
	"reflect"

	"github.com/google/uuid"
)

// Locator names an invocation target: a logical identity plus the
// view (interface) a proxy was obtained for. Two locators with equal
// Identity and ViewType denote the same target.
type Locator struct {
	Identity string
	ViewType reflect.Type
	// Affinity is the locator's own affinity hint, set when the proxy
	// was created (e.g. "pin to the node that created this session").
	// It is distinct from the weak affinity a proxy accumulates from
	// successful invocations.
	Affinity any
}

// NewLocator builds a locator for identity and viewType. Its
// affinity-cache key is derived from those two values (see
// correlationID), so locators with equal Identity and ViewType share
// one affinity-cache entry.
func NewLocator(identity string, viewType reflect.Type, affinity any) *Locator {
	return &Locator{Identity: identity, ViewType: viewType, Affinity: affinity}
}

// correlationID is a stable key derived on each call via uuid.NewSHA1
// from Identity and ViewType's name, so the same (Identity,
// ViewType) pair always maps to the same affinity-cache entry without
// a shared registry.
func (l *Locator) correlationID() uuid.UUID {
	view := ""
	if l.ViewType != nil {
		view = l.ViewType.String()
	}
	return uuid.NewSHA1(uuid.Nil, []byte(l.Identity+"|"+view))
}
