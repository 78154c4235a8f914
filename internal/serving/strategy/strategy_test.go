package strategy

import (
	"testing"
	"time"

	"github.com/reelstack/recoserve/internal/config/enums"
	"github.com/stretchr/testify/assert"
)

func newTestTracker(cooldown time.Duration) (*HealthTracker, *time.Time) {
	now := time.UnixMilli(0)
	h := NewHealthTracker(cooldown)
	h.nowFn = func() time.Time { return now }
	return h, &now
}

// ==================== selector ====================

func TestOrderUnfilteredAllHealthy(t *testing.T) {
	h, _ := newTestTracker(time.Minute)
	assert.Equal(t,
		[]enums.StrategyType{enums.FAST_INDEX, enums.FILTERED_STORE, enums.POPULARITY},
		Order(false, h))
}

func TestOrderFilteredGoesToStoreOnly(t *testing.T) {
	h, _ := newTestTracker(time.Minute)
	assert.Equal(t, []enums.StrategyType{enums.FILTERED_STORE}, Order(true, h))

	// Even a degraded store stays mandatory for filtered requests.
	h.ReportFailure(enums.FILTERED_STORE)
	assert.Equal(t, []enums.StrategyType{enums.FILTERED_STORE}, Order(true, h))
}

func TestOrderSkipsDegradedBackends(t *testing.T) {
	h, _ := newTestTracker(time.Minute)
	h.ReportFailure(enums.FAST_INDEX)
	assert.Equal(t,
		[]enums.StrategyType{enums.FILTERED_STORE, enums.POPULARITY},
		Order(false, h))

	h.ReportFailure(enums.FILTERED_STORE)
	assert.Equal(t, []enums.StrategyType{enums.POPULARITY}, Order(false, h))
}

// ==================== health tracker ====================

func TestAllowAfterCooldownProbesOnce(t *testing.T) {
	h, now := newTestTracker(time.Minute)
	h.ReportFailure(enums.FAST_INDEX)

	assert.False(t, h.Allow(enums.FAST_INDEX))

	// Cooldown elapsed: exactly one probe is admitted.
	*now = now.Add(time.Minute)
	assert.True(t, h.Allow(enums.FAST_INDEX))
	assert.False(t, h.Allow(enums.FAST_INDEX))
}

func TestProbeSuccessReopensBackend(t *testing.T) {
	h, now := newTestTracker(time.Minute)
	h.ReportFailure(enums.FAST_INDEX)

	*now = now.Add(time.Minute)
	assert.True(t, h.Allow(enums.FAST_INDEX))
	h.ReportSuccess(enums.FAST_INDEX)

	assert.True(t, h.Healthy(enums.FAST_INDEX))
	assert.True(t, h.Allow(enums.FAST_INDEX))
	assert.True(t, h.Allow(enums.FAST_INDEX))
}

func TestProbeFailureRestartsCooldown(t *testing.T) {
	h, now := newTestTracker(time.Minute)
	h.ReportFailure(enums.FAST_INDEX)

	*now = now.Add(time.Minute)
	assert.True(t, h.Allow(enums.FAST_INDEX))
	h.ReportFailure(enums.FAST_INDEX)

	*now = now.Add(30 * time.Second)
	assert.False(t, h.Allow(enums.FAST_INDEX))
	*now = now.Add(30 * time.Second)
	assert.True(t, h.Allow(enums.FAST_INDEX))
}

func TestUnknownBackendIsHealthy(t *testing.T) {
	h, _ := newTestTracker(time.Minute)
	assert.True(t, h.Healthy(enums.StrategyType("SOMETHING_ELSE")))
}
