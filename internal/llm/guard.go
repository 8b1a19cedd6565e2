package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/ai-diagnosis/internal/resilience"
)

// Guard rate-limits calls to a Generator and opens a circuit after repeated
// failures. It is safe for concurrent use.
type Guard struct {
	next    Generator
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// NewGuard wraps next. rpm <= 0 disables rate limiting.
func NewGuard(next Generator, rpm, breakerThreshold, breakerCooldownSecs int) *Guard {
	g := &Guard{next: next}
	if rpm > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), max(rpm/10, 1))
	}
	cbCfg := resilience.FromCircuitConfig(breakerThreshold, breakerCooldownSecs)
	cbCfg.ShouldTrip = func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}
	cbCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("llm: circuit state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	g.breaker = resilience.NewCircuitBreaker(cbCfg)
	return g
}

// Generate waits for a rate-limit slot and calls the wrapped generator.
func (g *Guard) Generate(ctx context.Context, prompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "llm: rate limit")
		}
	}
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return g.next.Generate(ctx, prompt)
	})
}

// CircuitState reports the breaker state.
func (g *Guard) CircuitState() resilience.CircuitState {
	return g.breaker.State()
}
