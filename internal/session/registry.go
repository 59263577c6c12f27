package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

const (
	defaultIdleTTL       = 2 * time.Hour
	defaultSweepInterval = 5 * time.Minute
	sweepJobName         = "session_idle_sweep"
)

// Params configure the registry.
type Params struct {
	Store         cart.Store
	CartObserver  cart.MutationObserver
	Checkout      checkout.Dependencies
	Logger        *logger.Logger
	Jobs          *metrics.JobMetrics
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

// Registry keeps hydrated sessions in memory and evicts idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	group    singleflight.Group
	params   Params
	logg     *logger.Logger
}

func NewRegistry(params Params) (*Registry, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Checkout.Backend == nil || params.Checkout.Gateway == nil {
		return nil, fmt.Errorf("checkout dependencies required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Checkout.Logger == nil {
		params.Checkout.Logger = params.Logger
	}
	if params.IdleTTL <= 0 {
		params.IdleTTL = defaultIdleTTL
	}
	if params.SweepInterval <= 0 {
		params.SweepInterval = defaultSweepInterval
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Registry{
		sessions: map[string]*Session{},
		params:   params,
		logg:     params.Logger,
	}, nil
}

// Get returns the session for id, hydrating it from the cart store on first use.
// Concurrent first requests for the same id share one hydration.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	if s := r.lookup(id); s != nil {
		return s, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		if s := r.lookup(id); s != nil {
			return s, nil
		}
		s, err := r.hydrate(ctx, id)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (r *Registry) lookup(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	s.touch(r.params.Now())
	return s
}

func (r *Registry) hydrate(ctx context.Context, id string) (*Session, error) {
	opts := []cart.Option{}
	if r.params.CartObserver != nil {
		opts = append(opts, cart.WithObserver(r.params.CartObserver))
	}
	c, err := cart.Hydrate(ctx, id, r.params.Store, opts...)
	if err != nil {
		return nil, err
	}
	orchestrator, err := checkout.NewOrchestrator(id, r.params.Checkout)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build checkout")
	}
	s := &Session{
		ID:       id,
		Cart:     c,
		Rates:    shipping.NewRateSet(),
		Checkout: orchestrator,
	}
	s.touch(r.params.Now())
	r.logg.Debug(r.logg.WithSessionID(ctx, id), "session hydrated")
	return s, nil
}

// Len returns the number of resident sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle longer than the configured TTL. Sessions with a
// checkout call outstanding are kept.
func (r *Registry) Sweep() int {
	cutoff := r.params.Now().Add(-r.params.IdleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.sessions {
		if s.LastSeen().After(cutoff) || s.busy() {
			continue
		}
		delete(r.sessions, id)
		evicted++
	}
	return evicted
}

// Run sweeps on the configured interval until ctx is canceled.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.params.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runSweep(ctx)
		}
	}
}

func (r *Registry) runSweep(ctx context.Context) {
	start := time.Now()
	evicted := r.Sweep()
	duration := time.Since(start)
	if r.params.Jobs != nil {
		r.params.Jobs.ObserveDuration(sweepJobName, duration)
		r.params.Jobs.IncSuccess(sweepJobName)
	}
	if evicted > 0 {
		jobCtx := r.logg.WithFields(ctx, map[string]any{"job": sweepJobName, "evicted": evicted})
		r.logg.Info(jobCtx, "idle sessions evicted")
	}
}

// Close writes every resident cart back to the store and empties the registry.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	var err error
	for id, s := range sessions {
		if saveErr := r.params.Store.Save(ctx, id, s.Cart.Snapshot()); saveErr != nil {
			err = multierr.Append(err, fmt.Errorf("flush cart %s: %w", id, saveErr))
		}
	}
	if err != nil && r.params.Jobs != nil {
		r.params.Jobs.IncFailure("session_flush")
	}
	return err
}
