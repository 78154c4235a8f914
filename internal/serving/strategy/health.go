package strategy

import (
	"sync"
	"time"

	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
)

// HealthTracker gates retrieval backends. A backend that reported a failure
// is skipped for a cooldown; once the cooldown elapses a single probe request
// is let through, and its outcome decides whether the backend reopens.
type HealthTracker struct {
	mu       sync.Mutex
	cooldown time.Duration
	nowFn    func() time.Time
	states   map[enums.StrategyType]*backendState
}

type backendState struct {
	down      bool
	lastProbe time.Time
}

func NewHealthTracker(cooldown time.Duration) *HealthTracker {
	return &HealthTracker{
		cooldown: cooldown,
		nowFn:    time.Now,
		states:   make(map[enums.StrategyType]*backendState),
	}
}

// Allow reports whether the backend should be attempted. For a degraded
// backend it admits one probe per cooldown window.
func (h *HealthTracker) Allow(backend enums.StrategyType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.states[backend]
	if !ok || !state.down {
		return true
	}
	now := h.nowFn()
	if now.Sub(state.lastProbe) >= h.cooldown {
		state.lastProbe = now
		metric.Incr("strategy_half_open_probe", metric.BuildTag(metric.NewTag(metric.TagStrategy, string(backend))))
		return true
	}
	return false
}

// ReportSuccess reopens the backend.
func (h *HealthTracker) ReportSuccess(backend enums.StrategyType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.states[backend]
	if ok && state.down {
		log.Info().Msgf("Backend %s recovered", backend)
		state.down = false
	}
}

// ReportFailure marks the backend degraded and restarts its cooldown.
func (h *HealthTracker) ReportFailure(backend enums.StrategyType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.states[backend]
	if !ok {
		state = &backendState{}
		h.states[backend] = state
	}
	if !state.down {
		log.Warn().Msgf("Backend %s degraded, cooling down for %v", backend, h.cooldown)
		metric.Incr("strategy_backend_degraded", metric.BuildTag(metric.NewTag(metric.TagStrategy, string(backend))))
	}
	state.down = true
	state.lastProbe = h.nowFn()
}

// Healthy reports the backend state without consuming a probe.
func (h *HealthTracker) Healthy(backend enums.StrategyType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.states[backend]
	return !ok || !state.down
}
