package middleware

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestRateLimiterCleanupLifecycle(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	rl.interval = 5 * time.Millisecond

	for i := 0; i < maxTrackedKeys+1; i++ {
		rl.getLimiter(fmt.Sprintf("10.0.%d.%d:1234", i/256, i%256))
	}

	if err := rl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rl.mu.Lock()
		tracked := len(rl.limiters)
		rl.mu.Unlock()
		if tracked == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cleanup never reset the limiter map; still tracking %d keys", tracked)
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rl.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := rl.Stop(ctx); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}
