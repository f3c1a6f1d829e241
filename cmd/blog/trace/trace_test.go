package trace

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSpanIDIncrementsWithinRequest(t *testing.T) {
	ctx := WithRequestAndSpan(context.Background(), "req-1", 0)

	assert.Equal(t, "0", CurrentSpanID(ctx))

	reqID, span := NextSpanID(ctx)
	assert.Equal(t, "req-1", reqID)
	assert.Equal(t, "1", span)

	_, span = NextSpanID(ctx)
	assert.Equal(t, "2", span)
	assert.Equal(t, "2", CurrentSpanID(ctx))
}

func TestNextSpanIDConcurrentCallsAreUnique(t *testing.T) {
	ctx := WithRequestAndSpan(context.Background(), "req-2", 0)

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, span := NextSpanID(ctx)
			mu.Lock()
			seen[span] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}

func TestWithoutTraceInfo(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", RequestIDFromContext(ctx))
	assert.Equal(t, "0", CurrentSpanID(ctx))

	reqID, span := NextSpanID(ctx)
	assert.Len(t, reqID, 32)
	assert.Equal(t, "1", span)
}

func TestDetachKeepsRequestID(t *testing.T) {
	parent, cancel := context.WithCancel(WithRequestAndSpan(context.Background(), "req-3", 4))
	cancel()

	detached := Detach(parent)

	assert.NoError(t, detached.Err())
	assert.Equal(t, "req-3", RequestIDFromContext(detached))
	assert.Equal(t, "0", CurrentSpanID(detached))
}
