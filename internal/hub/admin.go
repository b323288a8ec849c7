package hub

import (
	"github.com/Nico26-sw/legato-Service-DataHub/internal/tree"
)

// ChangeHandler is notified synchronously, on the hub's own command
// goroutine, whenever a push or observation is accepted at a resource
// (including a routed re-push), an output is created, or an I/O or
// observation resource is deleted. Attribute setters and
// ConfigureObservation do not notify. This is the admin facade's entire external surface per
// spec.md §4.7: an in-process registration API, not a wire protocol —
// remote admin and CLI surfaces are explicit Non-goals.
type ChangeHandler func(path string, kind tree.Type)

// OnResourceTreeChange registers handler to be called on every
// subsequent tree change. It returns an unregister function.
func (h *Hub) OnResourceTreeChange(handler ChangeHandler) (unregister func()) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers = append(h.handlers, handler)
	idx := len(h.handlers) - 1

	return func() {
		h.handlersMu.Lock()
		defer h.handlersMu.Unlock()
		if idx < len(h.handlers) {
			h.handlers[idx] = nil
		}
	}
}

// notifyChange invokes every registered handler. Called only from
// within the command loop, so handlers observe a consistent tree.
func (h *Hub) notifyChange(path string, kind tree.Type) {
	h.handlersMu.Lock()
	handlers := make([]ChangeHandler, len(h.handlers))
	copy(handlers, h.handlers)
	h.handlersMu.Unlock()

	for _, handler := range handlers {
		if handler != nil {
			handler(path, kind)
		}
	}
}
