package failover

import "time"

const (
	DefaultFailureThreshold = 3
	DefaultCoolDown         = 60 * time.Second
)

// TripFunc is called when a provider is suspended.
type TripFunc func(name string, until time.Time)

// ResetFunc is called when every provider was suspended and the pool reset them.
type ResetFunc func()

type options struct {
	failureThreshold int
	coolDown         time.Duration
	now              func() time.Time
	onTrip           TripFunc
	onReset          ResetFunc
}

// Option configures a ProviderPool.
type Option func(*options)

func defaultOptions() options {
	return options{
		failureThreshold: DefaultFailureThreshold,
		coolDown:         DefaultCoolDown,
		now:              time.Now,
	}
}

// WithFailureThreshold sets how many consecutive failures suspend a provider.
// Values below 1 keep the default.
func WithFailureThreshold(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.failureThreshold = n
		}
	}
}

// WithCoolDown sets how long a tripped provider stays suspended.
func WithCoolDown(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.coolDown = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithOnTrip registers fn to run, outside the pool lock, whenever a provider
// is suspended.
func WithOnTrip(fn TripFunc) Option {
	return func(o *options) {
		o.onTrip = fn
	}
}

// WithOnReset registers fn to run after a global reset.
func WithOnReset(fn ResetFunc) Option {
	return func(o *options) {
		o.onReset = fn
	}
}
