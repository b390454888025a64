// Package reload rebuilds the engine when templates change and fans the
// result out to every subscriber.
package reload

import (
	"context"
	"sync"
	"time"

	"github.com/zjrosen/replus/internal/engine"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/watcher"
)

const defaultBufferSize = 8

// Kind tells a successful reload from a failed one.
type Kind string

const (
	Reloaded Kind = "reloaded"
	Failed   Kind = "failed"
)

// Event is published after every rebuild. Engine is nil when Err is set.
type Event struct {
	Kind   Kind
	Engine *engine.Engine
	Files  []string
	Err    error
	At     time.Time
}

// BuildFunc loads the templates and compiles a fresh engine.
type BuildFunc func(ctx context.Context) (*engine.Engine, error)

// Hub turns template changes into engine rebuilds. Subscribers that fall
// behind miss events rather than block the hub.
type Hub struct {
	build      BuildFunc
	subs       map[chan Event]struct{}
	mu         sync.RWMutex
	done       chan struct{}
	bufferSize int
	now        func() time.Time
}

// NewHub creates a hub that rebuilds with build.
func NewHub(build BuildFunc) *Hub {
	return &Hub{
		build:      build,
		subs:       make(map[chan Event]struct{}),
		done:       make(chan struct{}),
		bufferSize: defaultBufferSize,
		now:        time.Now,
	}
}

// Subscribe returns a channel of events, closed when ctx is cancelled or
// the hub is closed.
func (h *Hub) Subscribe(ctx context.Context) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		ch := make(chan Event)
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event, h.bufferSize)
	h.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-h.done:
			return
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[sub]; ok {
			delete(h.subs, sub)
			close(sub)
		}
	}()

	return sub
}

// Run rebuilds on every change until ctx is done or changes is closed.
func (h *Hub) Run(ctx context.Context, changes <-chan watcher.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			h.Reload(ctx, change.Files)
		}
	}
}

// Reload rebuilds once, publishes the outcome and returns it.
func (h *Hub) Reload(ctx context.Context, files []string) Event {
	e, err := h.build(ctx)
	ev := Event{Kind: Reloaded, Engine: e, Files: files, Err: err, At: h.now()}
	if err != nil {
		ev.Kind = Failed
		ev.Engine = nil
		log.ErrorErr(log.CatWatcher, "Reload failed", err, "files", files)
	} else {
		log.Info(log.CatWatcher, "Reloaded templates", "files", files, "types", len(e.Types()))
	}
	h.publish(ev)
	return ev
}

func (h *Hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	select {
	case <-h.done:
		return
	default:
	}

	for sub := range h.subs {
		select {
		case sub <- ev:
		default:
			log.Warn(log.CatWatcher, "Dropped reload event for slow subscriber")
		}
	}
}

// Close closes every subscriber channel. Later reloads publish nothing.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return
	default:
	}

	close(h.done)
	for sub := range h.subs {
		close(sub)
	}
	h.subs = nil
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
