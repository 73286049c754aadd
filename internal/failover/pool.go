package failover

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kursadbilgin/notify-relay/internal/provider"
)

// ErrNoProviders is returned by NewProviderPool for an empty member list.
var ErrNoProviders = errors.New("at least one provider is required")

// Member is a named sender handed to NewProviderPool.
type Member struct {
	Name   string
	Sender provider.Sender
}

// ProviderState is a point-in-time view of one provider's breaker.
type ProviderState struct {
	Name                string    `json:"name"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	SuspendedUntil      time.Time `json:"suspendedUntil"`
}

// ProviderPool owns the ordered providers, their breakers and the shared
// rotation pointer. It is safe for concurrent use.
type ProviderPool struct {
	mu        sync.Mutex
	providers []*Provider
	pointer   int
	opts      options
}

// NewProviderPool registers members in rotation order. Names must be non-blank
// and unique, and every member needs a sender.
func NewProviderPool(members []Member, opts ...Option) (*ProviderPool, error) {
	if len(members) == 0 {
		return nil, ErrNoProviders
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	seen := make(map[string]struct{}, len(members))
	providers := make([]*Provider, 0, len(members))
	for i, member := range members {
		name := strings.TrimSpace(member.Name)
		if name == "" {
			return nil, fmt.Errorf("provider at position %d has no name", i)
		}
		if member.Sender == nil {
			return nil, fmt.Errorf("provider %q has no sender", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("provider %q registered twice", name)
		}
		seen[name] = struct{}{}

		providers = append(providers, &Provider{name: name, sender: member.Sender})
	}

	return &ProviderPool{
		providers: providers,
		opts:      o,
	}, nil
}

// Len returns the number of registered providers.
func (p *ProviderPool) Len() int {
	return len(p.providers)
}

// Pick returns the next eligible provider in rotation order, starting at the
// shared pointer. When every provider is suspended the whole pool is reset and
// the first provider is returned.
func (p *ProviderPool) Pick() *Provider {
	return p.pick(nil)
}

// PickUntried is Pick restricted to providers whose names are not in tried.
// It returns nil when the only eligible providers were already tried, or when
// tried covers the whole pool. A global reset still happens when nothing is
// eligible, and the first untried provider in registration order is returned.
func (p *ProviderPool) PickUntried(tried map[string]struct{}) *Provider {
	return p.pick(tried)
}

func (p *ProviderPool) pick(tried map[string]struct{}) *Provider {
	p.mu.Lock()

	n := len(p.providers)
	now := p.opts.now()
	anyEligible := false
	for i := 0; i < n; i++ {
		idx := (p.pointer + i) % n
		candidate := p.providers[idx]
		if !candidate.eligible(now) {
			continue
		}
		anyEligible = true
		if _, done := tried[candidate.name]; done {
			continue
		}
		p.pointer = (idx + 1) % n
		p.mu.Unlock()
		return candidate
	}

	first := -1
	for idx, candidate := range p.providers {
		if _, done := tried[candidate.name]; !done {
			first = idx
			break
		}
	}
	if anyEligible || first < 0 {
		p.mu.Unlock()
		return nil
	}

	for _, candidate := range p.providers {
		candidate.reset()
	}
	p.pointer = (first + 1) % n
	picked := p.providers[first]
	onReset := p.opts.onReset
	p.mu.Unlock()

	if onReset != nil {
		onReset()
	}
	return picked
}

// RecordFailure counts a failed attempt against pr and reports whether it
// suspended the provider.
func (p *ProviderPool) RecordFailure(pr *Provider) bool {
	if pr == nil {
		return false
	}

	p.mu.Lock()
	tripped := pr.recordFailure(p.opts.now(), p.opts.failureThreshold, p.opts.coolDown)
	until := pr.suspendedUntil
	onTrip := p.opts.onTrip
	p.mu.Unlock()

	if tripped && onTrip != nil {
		onTrip(pr.name, until)
	}
	return tripped
}

// RecordSuccess clears the provider's failure count.
func (p *ProviderPool) RecordSuccess(pr *Provider) {
	if pr == nil {
		return
	}

	p.mu.Lock()
	pr.recordSuccess()
	p.mu.Unlock()
}

// Snapshot returns the breaker state of every provider in registration order.
func (p *ProviderPool) Snapshot() []ProviderState {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.opts.now()
	states := make([]ProviderState, 0, len(p.providers))
	for _, pr := range p.providers {
		states = append(states, ProviderState{
			Name:                pr.name,
			State:               pr.state(now),
			ConsecutiveFailures: pr.consecutiveFailures,
			SuspendedUntil:      pr.suspendedUntil,
		})
	}
	return states
}
