package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/contactbook/internal/clock"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/metrics"
)

// Latency is the simulated delay of each mutating operation.
type Latency struct {
	Register time.Duration
	Login    time.Duration
	Create   time.Duration
	Update   time.Duration
	Remove   time.Duration
}

// DefaultLatency mirrors a slow remote backend.
func DefaultLatency() Latency {
	return Latency{
		Register: 500 * time.Millisecond,
		Login:    500 * time.Millisecond,
		Create:   400 * time.Millisecond,
		Update:   400 * time.Millisecond,
		Remove:   300 * time.Millisecond,
	}
}

// Options are shared by both stores. Zero fields get sensible defaults:
// no waiting, a no-op logger, no metrics and random UUIDs.
type Options struct {
	Sleeper clock.Sleeper
	Latency Latency
	Logger  logging.Logger
	Metrics *metrics.Recorder
	NewID   func() string
}

func (o Options) withDefaults() Options {
	if o.Sleeper == nil {
		o.Sleeper = clock.Instant{}
	}
	if o.Logger == nil {
		o.Logger = logging.Nop{}
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// pending tracks in-flight operations; loading is pending > 0.
type pending struct {
	mu sync.Mutex
	n  int
}

func (p *pending) begin() func() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.n--
		p.mu.Unlock()
	}
}

func (p *pending) active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n > 0
}
