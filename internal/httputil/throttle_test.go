// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_FirstCallImmediate(t *testing.T) {
	ResetThrottles()

	start := time.Now()
	err := Throttle(context.Background(), "semantic_scholar", 500*time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestThrottle_SecondCallWaits(t *testing.T) {
	ResetThrottles()

	const interval = 50 * time.Millisecond
	require.NoError(t, Throttle(context.Background(), "crossref", interval))

	start := time.Now()
	require.NoError(t, Throttle(context.Background(), "crossref", interval))
	assert.GreaterOrEqual(t, time.Since(start), interval-5*time.Millisecond)
}

func TestThrottle_SourcesIndependent(t *testing.T) {
	ResetThrottles()

	require.NoError(t, Throttle(context.Background(), "crossref", time.Minute))

	// A different source is not paced by crossref's limiter.
	start := time.Now()
	require.NoError(t, Throttle(context.Background(), "openalex", time.Minute))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestThrottle_ContextCancelled(t *testing.T) {
	ResetThrottles()

	require.NoError(t, Throttle(context.Background(), "crossref", time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := Throttle(ctx, "crossref", time.Minute)
	assert.Error(t, err)
}
