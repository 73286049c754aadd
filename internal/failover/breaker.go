package failover

import (
	"time"

	"github.com/kursadbilgin/notify-relay/internal/provider"
)

// State is the logical breaker state of a provider at a point in time.
type State string

const (
	StateClosed State = "CLOSED"
	StateOpen   State = "OPEN"
)

// Provider is one delivery backend plus its breaker bookkeeping.
// The counters are guarded by the owning ProviderPool.
type Provider struct {
	name   string
	sender provider.Sender

	consecutiveFailures int
	suspendedUntil      time.Time
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Sender() provider.Sender {
	return p.sender
}

// eligible reports whether the suspension deadline has passed.
func (p *Provider) eligible(now time.Time) bool {
	return !now.Before(p.suspendedUntil)
}

func (p *Provider) state(now time.Time) State {
	if p.eligible(now) {
		return StateClosed
	}
	return StateOpen
}

// recordFailure bumps the failure count and suspends the provider once the
// threshold is reached. The count survives the cool-down, so a provider that
// fails right after becoming eligible again is suspended on that one failure.
func (p *Provider) recordFailure(now time.Time, threshold int, coolDown time.Duration) bool {
	p.consecutiveFailures++
	if p.consecutiveFailures < threshold {
		return false
	}
	p.suspendedUntil = now.Add(coolDown)
	return true
}

func (p *Provider) recordSuccess() {
	p.consecutiveFailures = 0
}

func (p *Provider) reset() {
	p.consecutiveFailures = 0
	p.suspendedUntil = time.Time{}
}

func (s State) String() string {
	return string(s)
}
