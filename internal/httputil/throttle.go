// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source adapters.
package httputil

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the polite delay between consecutive requests to
// the same provider when no per-source interval is configured.
const DefaultMinInterval = 1 * time.Second

// throttles holds one limiter per source name. Process-wide state: every
// aggregation pass in the process shares the same per-source pacing, so
// concurrent builds cannot gang up on one provider.
var (
	throttleMu sync.Mutex
	throttles  = make(map[string]*rate.Limiter)
)

// Throttle blocks until the named source's minimum request interval has
// elapsed since its previous request, or until the context is done. The
// first call for a source proceeds immediately. The interval is fixed by
// whichever call first names the source.
func Throttle(ctx context.Context, source string, minInterval time.Duration) error {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}

	throttleMu.Lock()
	lim, ok := throttles[source]
	if !ok {
		lim = rate.NewLimiter(rate.Every(minInterval), 1)
		throttles[source] = lim
	}
	throttleMu.Unlock()

	return lim.Wait(ctx)
}

// ResetThrottles drops all per-source limiter state. Tests use this to
// isolate pacing behavior between cases.
func ResetThrottles() {
	throttleMu.Lock()
	defer throttleMu.Unlock()
	throttles = make(map[string]*rate.Limiter)
}
