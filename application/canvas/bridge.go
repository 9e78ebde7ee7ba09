package canvas

import (
	"context"
	"strings"
	"sync"
)

// CallbackPrefix starts every session-scoped click callback name.
const CallbackPrefix = "orgClick_"

// ClickHandler receives a click forwarded through the bridge.
type ClickHandler func(ctx context.Context, renderID string) ClickOutcome

type binding struct {
	owner   string
	handler ClickHandler
}

// Bridge is the dispatch table between the engine's named click callback and
// the canvas that owns it. Each mounted canvas registers its own name and
// removes it on unmount, so a click can never reach a disposed canvas.
type Bridge struct {
	mu       sync.RWMutex
	bindings map[string]binding
}

func NewBridge() *Bridge {
	return &Bridge{bindings: make(map[string]binding)}
}

// CallbackName returns the callback bound for a session token.
func CallbackName(token string) string {
	return CallbackPrefix + strings.ReplaceAll(token, "-", "")
}

// Register binds handler under the callback name of token and returns it.
// A second registration for the same token replaces the first.
func (b *Bridge) Register(token, owner string, handler ClickHandler) string {
	name := CallbackName(token)
	b.mu.Lock()
	b.bindings[name] = binding{owner: owner, handler: handler}
	b.mu.Unlock()
	return name
}

// Deregister removes a callback. Unknown names are ignored.
func (b *Bridge) Deregister(callback string) {
	b.mu.Lock()
	delete(b.bindings, callback)
	b.mu.Unlock()
}

// Dispatch forwards a click to the canvas registered under callback.
// Unknown callbacks, or callbacks owned by another user, are ClickUnbound.
func (b *Bridge) Dispatch(ctx context.Context, callback, userID, renderID string) ClickOutcome {
	b.mu.RLock()
	bound, ok := b.bindings[callback]
	b.mu.RUnlock()
	if !ok || bound.owner != userID {
		return ClickUnbound
	}
	return bound.handler(ctx, renderID)
}

// Len returns the number of registered callbacks.
func (b *Bridge) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bindings)
}
