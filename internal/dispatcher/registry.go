package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry keeps one Controller per console session.
type Registry struct {
	backend Backend
	opts    Options
	ttl     time.Duration

	mu          sync.RWMutex
	controllers map[string]*Controller
}

// NewRegistry creates controllers from b and opts. Sessions idle for longer
// than ttl are dropped by Sweep; a zero ttl keeps them forever.
func NewRegistry(b Backend, opts Options, ttl time.Duration) *Registry {
	return &Registry{
		backend:     b,
		opts:        opts,
		ttl:         ttl,
		controllers: make(map[string]*Controller),
	}
}

// Create starts a fresh session with a random ID.
func (r *Registry) Create() *Controller {
	c := NewController(uuid.NewString(), r.backend, r.opts)
	r.mu.Lock()
	r.controllers[c.ID()] = c
	r.mu.Unlock()
	return c
}

func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controllers[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.controllers)
}

// Sweep drops idle sessions that have no request in flight, runs OnEvict for
// each and returns how many were removed.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	var removed []string
	r.mu.Lock()
	for id, c := range r.controllers {
		if now.Sub(c.LastActive()) < r.ttl || c.State().InFlight {
			continue
		}
		delete(r.controllers, id)
		removed = append(removed, id)
	}
	r.mu.Unlock()

	if r.opts.OnEvict != nil {
		for _, id := range removed {
			r.opts.OnEvict(ctx, id)
		}
	}
	return len(removed)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(ctx, now); n > 0 {
				hlog.Infof("[sessions] expired %d idle sessions, %d active", n, r.Len())
			}
		}
	}
}
