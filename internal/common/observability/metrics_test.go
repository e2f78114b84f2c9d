package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordsWithoutPanicking(t *testing.T) {
	obs, err := New("cinesense-test")
	require.NoError(t, err)
	defer obs.Shutdown()

	ctx := context.Background()
	assert.NotPanics(t, func() {
		obs.RecordJobProcessed(ctx, "rerank-candidates", "completed")
		obs.RecordJobDuration(ctx, "rerank-candidates", 15*time.Millisecond, "completed")
		obs.RecordRequest(ctx, "/chat", "POST", 200, 120*time.Millisecond)
	})
	assert.NotNil(t, obs.Tracer())
}

func TestObservability_NilIsNoOp(t *testing.T) {
	var obs *Observability
	ctx := context.Background()

	assert.NotPanics(t, func() {
		obs.RecordJobProcessed(ctx, "analyze-conversation", "failed")
		obs.RecordRequest(ctx, "/health", "GET", 200, time.Millisecond)
		obs.Shutdown()
	})
	assert.NotNil(t, obs.Tracer())
}
