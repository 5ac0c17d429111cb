// Package router implements the event router: a registry mapping event names
// to handlers, and the uniform reception pipeline applied to every message
// from inbound and outbound connections alike.
package router

import (
	"log"
	"sync"

	"github.com/peermesh/peermesh-go/pkg/overlay"
)

// Observer receives dispatch outcomes. The node's metrics implement it;
// a nil observer disables the notifications.
type Observer interface {
	EnvelopeRejected()
	EventDispatched(event string)
	HandlerFailed(event string)
}

// Router routes validated envelopes to registered handlers. Registration is
// last-wins: a second handler for the same name silently replaces the first,
// with no multi-handler fan-out.
type Router struct {
	log      *log.Logger
	observer Observer

	mu       sync.RWMutex
	handlers map[string]overlay.HandlerFunc
}

// New creates an empty router.
func New(logger *log.Logger, observer Observer) *Router {
	return &Router{
		log:      logger,
		observer: observer,
		handlers: make(map[string]overlay.HandlerFunc),
	}
}

// Register stores handler under name, replacing any prior handler.
func (r *Router) Register(name string, handler overlay.HandlerFunc) {
	r.mu.Lock()
	r.handlers[name] = handler
	r.mu.Unlock()
}

// Dispatch runs the reception pipeline on one raw message: validate the
// envelope, look up the handler, and invoke it synchronously with the
// originating connection handle. Every failure mode (malformed envelope,
// unknown event, handler error, handler panic) is logged and contained;
// nothing here may crash the connection or the process.
func (r *Router) Dispatch(from overlay.Sender, raw []byte) {
	env, err := overlay.ParseEnvelope(raw)
	if err != nil {
		r.log.Printf("WARN dropping message from %s: %v", from.RemoteAddr(), err)
		if r.observer != nil {
			r.observer.EnvelopeRejected()
		}
		return
	}

	r.mu.RLock()
	handler, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		r.log.Printf("WARN no handler for event %q from %s, dropping", env.Event, from.RemoteAddr())
		if r.observer != nil {
			r.observer.EnvelopeRejected()
		}
		return
	}

	r.invoke(env, handler, from)
}

// invoke isolates one handler call so a panic cannot propagate past the
// router or affect other connections' processing.
func (r *Router) invoke(env overlay.Envelope, handler overlay.HandlerFunc, from overlay.Sender) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Printf("ERROR handler for %q panicked: %v", env.Event, rec)
			if r.observer != nil {
				r.observer.HandlerFailed(env.Event)
			}
		}
	}()

	if err := handler(from, env.Data); err != nil {
		r.log.Printf("ERROR handler for %q failed: %v", env.Event, err)
		if r.observer != nil {
			r.observer.HandlerFailed(env.Event)
		}
		return
	}
	if r.observer != nil {
		r.observer.EventDispatched(env.Event)
	}
}
