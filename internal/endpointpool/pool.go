// Package endpointpool rotates between RPC endpoints so a single flaky
// node cannot stall trading.
package endpointpool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-sniper/internal/retry"
	"solana-sniper/internal/solana"
)

// ErrRPCExhausted is returned when every attempt across the pool failed.
// Callers treat it as terminal for the operation that triggered it.
var ErrRPCExhausted = errors.New("endpointpool: all rpc attempts exhausted")

// ErrNoEndpoints is returned by New when the candidate list is empty.
var ErrNoEndpoints = errors.New("endpointpool: no endpoints configured")

// Endpoint pairs a display name with its RPC client.
type Endpoint struct {
	Name   string
	Client solana.RPCClient
}

// Options configures pool construction.
type Options struct {
	// Policy drives backoff between attempts. Zero value falls back to
	// retry.DefaultPolicy.
	Policy retry.Policy
	// ProbeTimeout bounds each health probe during New. Defaults to 5s.
	ProbeTimeout time.Duration
	// Logger receives rotation and probe messages. Defaults to
	// log.Default.
	Logger *log.Logger
	// OnRotate is called after each rotation with the endpoint rotated
	// away from and the one rotated to. Optional.
	OnRotate func(from, to string)
	// Observe is called once per attempt with the operation label and
	// its duration, successful or not. Optional.
	Observe func(label string, d time.Duration)
}

// Pool holds the healthy endpoints and the rotation cursor.
type Pool struct {
	endpoints []Endpoint
	policy    retry.Policy
	logger    *log.Logger
	onRotate  func(from, to string)
	observe   func(label string, d time.Duration)

	mu      sync.Mutex
	current int
}

// New probes every candidate with getLatestBlockhash and keeps the ones
// that answer. Unresponsive candidates are dropped permanently; the pool
// membership never changes after construction. If no candidate answers,
// the first one is kept anyway so the engine can start and lean on
// per-call retries.
func New(ctx context.Context, candidates []Endpoint, opts *Options) (*Pool, error) {
	if len(candidates) == 0 {
		return nil, ErrNoEndpoints
	}

	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.Policy.InitialDelay == 0 && o.Policy.MaxAttempts == 0 {
		o.Policy = retry.DefaultPolicy()
	}
	if o.ProbeTimeout == 0 {
		o.ProbeTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}

	var healthy []Endpoint
	for _, ep := range candidates {
		probeCtx, cancel := context.WithTimeout(ctx, o.ProbeTimeout)
		_, err := ep.Client.GetLatestBlockhash(probeCtx)
		cancel()
		if err != nil {
			o.Logger.Printf("[pool] endpoint %s failed probe, dropping: %v", ep.Name, err)
			continue
		}
		healthy = append(healthy, ep)
	}

	if len(healthy) == 0 {
		o.Logger.Printf("[pool] no endpoint passed the probe, keeping %s as sole endpoint", candidates[0].Name)
		healthy = candidates[:1]
	}

	return &Pool{
		endpoints: healthy,
		policy:    o.Policy,
		logger:    o.Logger,
		onRotate:  o.OnRotate,
		observe:   o.Observe,
	}, nil
}

// Size reports how many endpoints survived the probe.
func (p *Pool) Size() int {
	return len(p.endpoints)
}

// Current returns the endpoint the next Execute call will use first.
func (p *Pool) Current() Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoints[p.current]
}

// Rotate advances the pool to the next endpoint. Callers use it when an
// operation keeps failing in a way the pool cannot observe from its own
// calls, such as a transaction expiring repeatedly on one node.
func (p *Pool) Rotate() {
	p.rotate()
}

// rotate advances the cursor to the next endpoint and reports the new one.
func (p *Pool) rotate() Endpoint {
	p.mu.Lock()
	from := p.endpoints[p.current]
	p.current = (p.current + 1) % len(p.endpoints)
	to := p.endpoints[p.current]
	p.mu.Unlock()

	if len(p.endpoints) > 1 {
		p.logger.Printf("[pool] rotating %s -> %s", from.Name, to.Name)
	}
	if p.onRotate != nil {
		p.onRotate(from.Name, to.Name)
	}
	return to
}

// Execute runs fn against the current endpoint, rotating to the next
// one after each transient failure until the retry policy gives up.
// Non-transient errors stop immediately and are returned as-is; on
// exhaustion the last transient error is wrapped in ErrRPCExhausted.
// The label names the operation in log lines.
func (p *Pool) Execute(ctx context.Context, label string, fn func(ctx context.Context, client solana.RPCClient) error) error {
	var lastErr error
	err := p.policy.Do(ctx, func(ctx context.Context) error {
		ep := p.Current()
		start := time.Now()
		err := fn(ctx, ep.Client)
		if p.observe != nil {
			p.observe(label, time.Since(start))
		}
		if err == nil {
			return nil
		}
		if !solana.IsTransient(err) {
			return retry.Stop(err)
		}
		p.logger.Printf("[pool] %s failed on %s: %v", label, ep.Name, err)
		lastErr = err
		p.rotate()
		return err
	})
	if err == nil {
		return nil
	}
	if lastErr != nil && errors.Is(err, lastErr) {
		return fmt.Errorf("%s: %w: %v", label, ErrRPCExhausted, lastErr)
	}
	return err
}
