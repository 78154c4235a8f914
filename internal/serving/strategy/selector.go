package strategy

import (
	"github.com/reelstack/recoserve/internal/config/enums"
)

// Order returns the retrieval backends to attempt, in order.
//
// Filtered requests must go to the filterable store: it is the only backend
// that can evaluate attribute constraints, so health gating does not apply.
// Unfiltered requests walk the fast index first, then the store, and always
// end at popularity so the chain cannot come up empty-handed.
func Order(hasFilters bool, health *HealthTracker) []enums.StrategyType {
	if hasFilters {
		return []enums.StrategyType{enums.FILTERED_STORE}
	}

	order := make([]enums.StrategyType, 0, 3)
	if health.Allow(enums.FAST_INDEX) {
		order = append(order, enums.FAST_INDEX)
	}
	if health.Allow(enums.FILTERED_STORE) {
		order = append(order, enums.FILTERED_STORE)
	}
	return append(order, enums.POPULARITY)
}
