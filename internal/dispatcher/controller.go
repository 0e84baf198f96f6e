// Package dispatcher drives one session: it gates dispatches on the in-flight
// flag, calls the backend and folds the outcome back into the state.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/session"
)

var (
	ErrBusy         = errors.New("a request is already in flight")
	ErrMissingInput = errors.New("required image is not selected")
)

const (
	NoticeTryOnFailed   = "Failed to process try-on request. Check the API URL."
	NoticeAnalyzeFailed = "Failed to analyze image. Check the API URL."
)

// Backend is the subset of *backend.Client the controller needs.
type Backend interface {
	TryOn(ctx context.Context, base string, in backend.TryOnInput) (backend.Result, error)
	Analyze(ctx context.Context, base string, in backend.AnalyzeInput) (backend.Result, error)
}

// ResultHook runs after a fresh result has been committed to the state.
type ResultHook func(ctx context.Context, c *Controller, generation uint64, result session.Result)

// EvictHook runs after a Registry drops an expired session.
type EvictHook func(ctx context.Context, sessionID string)

type Options struct {
	BaseURL           string
	Category          string
	SegmentationModel string
	OnResult          ResultHook
	// OnEvict is used by Registry only.
	OnEvict EvictHook
}

type Controller struct {
	id      string
	backend Backend
	opts    Options

	mu         sync.Mutex
	state      session.State
	subs       map[int]chan session.State
	nextSub    int
	lastActive time.Time
}

func NewController(id string, b Backend, opts Options) *Controller {
	return &Controller{
		id:         id,
		backend:    b,
		opts:       opts,
		state:      session.New(opts.BaseURL),
		subs:       make(map[int]chan session.State),
		lastActive: time.Now(),
	}
}

func (c *Controller) ID() string { return c.id }

// State returns a snapshot.
func (c *Controller) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Apply folds a user event into the state and returns the result.
func (c *Controller) Apply(e session.Event) session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(e)
	return c.state.Clone()
}

// Run dispatches flow and blocks until the backend call resolves. It returns
// ErrBusy or ErrMissingInput without issuing a request when the action is
// disabled, and the backend error when the call fails.
func (c *Controller) Run(ctx context.Context, flow session.Flow) error {
	req, err := c.begin(flow)
	if err != nil {
		return err
	}
	return c.complete(ctx, req)
}

// Start is Run on a background goroutine. Only the gating errors are
// reported.
func (c *Controller) Start(flow session.Flow) error {
	req, err := c.begin(flow)
	if err != nil {
		return err
	}
	go func() {
		_ = c.complete(context.Background(), req)
	}()
	return nil
}

// Subscribe streams a snapshot after every transition. The channel holds only
// the latest snapshot; a slow reader skips intermediate ones.
func (c *Controller) Subscribe() (<-chan session.State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan session.State, 1)
	ch <- c.state.Clone()
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// LastActive is when the session last saw a transition.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

type dispatch struct {
	flow       session.Flow
	generation uint64
	base       string
	person     backend.Image
	garment    backend.Image
	model      backend.Model
}

func (c *Controller) begin(flow session.Flow) (dispatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.InFlight {
		return dispatch{}, ErrBusy
	}
	if !c.state.Can(flow) {
		return dispatch{}, ErrMissingInput
	}
	c.applyLocked(session.DispatchStarted{Flow: flow})

	return dispatch{
		flow:       flow,
		generation: c.state.Generation,
		base:       backend.TrimBaseURL(c.state.BaseURL),
		person:     c.state.Person.Image(),
		garment:    c.state.Garment.Image(),
		model:      c.state.EffectiveModel(),
	}, nil
}

func (c *Controller) complete(ctx context.Context, req dispatch) error {
	outcome, err := c.call(ctx, req)
	if err != nil {
		hlog.CtxWarnf(ctx, "[dispatch] session=%s %s failed: %v", c.id, req.flow, err)
		c.Apply(session.DispatchFailed{Generation: req.generation, Notice: noticeFor(req.flow)})
		return err
	}

	var (
		committed session.Result
		fresh     bool
	)
	c.mu.Lock()
	c.applyLocked(session.DispatchSucceeded{Generation: req.generation, Outcome: outcome})
	stale := c.state.Generation != req.generation
	if !stale && c.state.Phase == session.PhaseCompleted && c.state.Result != nil {
		committed, fresh = *c.state.Result, true
	}
	c.mu.Unlock()

	switch {
	case stale:
		hlog.CtxInfof(ctx, "[dispatch] session=%s %s reply discarded: inputs changed while in flight", c.id, req.flow)
	case !fresh:
		hlog.CtxInfof(ctx, "[dispatch] session=%s %s reply not recognized: %+v", c.id, req.flow, outcome)
	case c.opts.OnResult != nil:
		c.opts.OnResult(ctx, c, req.generation, committed)
	}
	return nil
}

// call runs the backend request. A panic inside the backend is turned into an
// error so the in-flight flag is always released.
func (c *Controller) call(ctx context.Context, req dispatch) (outcome backend.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend call panicked: %v", r)
		}
	}()
	switch req.flow {
	case session.FlowTryOn:
		return c.backend.TryOn(ctx, req.base, backend.TryOnInput{
			Person:            req.person,
			Garment:           req.garment,
			Category:          c.opts.Category,
			SegmentationModel: c.opts.SegmentationModel,
		})
	case session.FlowAnalyze:
		return c.backend.Analyze(ctx, req.base, backend.AnalyzeInput{
			Person: req.person,
			Model:  req.model,
		})
	}
	return nil, fmt.Errorf("unknown flow %q", req.flow)
}

func (c *Controller) applyLocked(e session.Event) {
	c.state = session.Reduce(c.state, e)
	c.lastActive = time.Now()
	snap := c.state.Clone()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func noticeFor(flow session.Flow) string {
	if flow == session.FlowAnalyze {
		return NoticeAnalyzeFailed
	}
	return NoticeTryOnFailed
}
