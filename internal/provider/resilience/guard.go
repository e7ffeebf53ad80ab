package resilience

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"github.com/topicrelay/topicrelay/internal/notification"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("push provider temporarily unavailable: circuit breaker is open")

// readiness is implemented by providers that need one-time initialization.
type readiness interface {
	Ready() bool
}

// GuardConfig holds configuration for a provider guard.
type GuardConfig struct {
	// Provider is the wrapped push provider.
	Provider notification.Provider

	// Registry receives success/failure records. Optional.
	Registry *Registry

	// CircuitBreaker enables the breaker when non-nil.
	CircuitBreaker *CircuitBreakerConfig
}

// Guard decorates a notification.Provider with health tracking and an
// optional circuit breaker. Each call reaches the provider at most once.
type Guard struct {
	next     notification.Provider
	registry *Registry
	breaker  *gobreaker.CircuitBreaker[any]
}

// NewGuard wraps a provider and registers it in the registry.
func NewGuard(cfg GuardConfig) *Guard {
	g := &Guard{
		next:     cfg.Provider,
		registry: cfg.Registry,
	}
	if cfg.CircuitBreaker != nil {
		g.breaker = NewCircuitBreaker[any](*cfg.CircuitBreaker)
	}
	if g.registry != nil {
		g.registry.Register(g.Name(), g)
	}
	return g
}

// Name returns the wrapped provider name.
func (g *Guard) Name() string {
	return g.next.Name()
}

// Ready reports whether the wrapped provider is initialized.
func (g *Guard) Ready() bool {
	if r, ok := g.next.(readiness); ok {
		return r.Ready()
	}
	return true
}

// CircuitBreakerState returns the breaker state; closed when disabled.
func (g *Guard) CircuitBreakerState() gobreaker.State {
	if g.breaker == nil {
		return gobreaker.StateClosed
	}
	return g.breaker.State()
}

// CircuitBreakerCounts returns the breaker counts; zero when disabled.
func (g *Guard) CircuitBreakerCounts() gobreaker.Counts {
	if g.breaker == nil {
		return gobreaker.Counts{}
	}
	return g.breaker.Counts()
}

// Send publishes a message through the guard.
func (g *Guard) Send(ctx context.Context, msg *notification.Message) (string, error) {
	res, err := g.execute(func() (any, error) {
		return g.next.Send(ctx, msg)
	})
	id, _ := res.(string)
	return id, err
}

// SubscribeToTopic subscribes tokens through the guard.
func (g *Guard) SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*notification.TopicResponse, error) {
	res, err := g.execute(func() (any, error) {
		return g.next.SubscribeToTopic(ctx, tokens, topic)
	})
	resp, _ := res.(*notification.TopicResponse)
	return resp, err
}

// UnsubscribeFromTopic unsubscribes tokens through the guard.
func (g *Guard) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*notification.TopicResponse, error) {
	res, err := g.execute(func() (any, error) {
		return g.next.UnsubscribeFromTopic(ctx, tokens, topic)
	})
	resp, _ := res.(*notification.TopicResponse)
	return resp, err
}

func (g *Guard) execute(fn func() (any, error)) (any, error) {
	var (
		res any
		err error
	)
	// An uninitialized provider bypasses the breaker so its error keeps
	// surfacing as-is instead of tripping the circuit.
	if g.breaker == nil || !g.Ready() {
		res, err = fn()
	} else {
		res, err = g.breaker.Execute(fn)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = ErrCircuitOpen
		}
	}

	if g.registry != nil {
		switch {
		case errors.Is(err, notification.ErrProviderNotInitialized):
		case IsProviderFailure(err):
			g.registry.RecordFailure(g.Name(), err)
		default:
			g.registry.RecordSuccess(g.Name())
		}
	}
	return res, err
}
