package cache

import (
	"context"
	"testing"
	"time"

	"github.com/edgelink/edgelink/internal/model"
)

func TestAbuseLimiter_CapsPerRecipient(t *testing.T) {
	t.Parallel()

	c, _ := testCache(t)
	limiter := NewAbuseLimiter(c, nil, discardLogger())

	ctx := context.Background()
	// Default verification cap is 5 per hour.
	for i := 1; i <= 5; i++ {
		if !limiter.Allow(ctx, model.NotifyVerification, "a@example.com") {
			t.Fatalf("send %d should be allowed", i)
		}
	}
	if limiter.Allow(ctx, model.NotifyVerification, "a@example.com") {
		t.Error("sixth verification within the hour should be blocked")
	}

	// Other recipients and other kinds are unaffected.
	if !limiter.Allow(ctx, model.NotifyVerification, "b@example.com") {
		t.Error("different recipient should have its own cap")
	}
	if !limiter.Allow(ctx, model.NotifyPasswordReset, "a@example.com") {
		t.Error("different kind should have its own cap")
	}
}

func TestAbuseLimiter_PasswordResetCap(t *testing.T) {
	t.Parallel()

	c, _ := testCache(t)
	limiter := NewAbuseLimiter(c, nil, discardLogger())

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if !limiter.Allow(ctx, model.NotifyPasswordReset, "a@example.com") {
			t.Fatalf("send %d should be allowed", i)
		}
	}
	if limiter.Allow(ctx, model.NotifyPasswordReset, "a@example.com") {
		t.Error("fourth password reset within the hour should be blocked")
	}
}

func TestAbuseLimiter_WindowIsFixedNotSliding(t *testing.T) {
	t.Parallel()

	c, mr := testCache(t)
	limits := map[model.NotificationKind]int{model.NotifyVerification: 2}
	limiter := NewAbuseLimiter(c, limits, discardLogger())

	ctx := context.Background()
	if !limiter.Allow(ctx, model.NotifyVerification, "a@example.com") {
		t.Fatal("first send should be allowed")
	}

	// 50 minutes later a second send must not push the expiry out.
	mr.FastForward(50 * time.Minute)
	if !limiter.Allow(ctx, model.NotifyVerification, "a@example.com") {
		t.Fatal("second send should be allowed")
	}
	if limiter.Allow(ctx, model.NotifyVerification, "a@example.com") {
		t.Fatal("third send should be blocked")
	}

	// The window opened at the FIRST send, so 15 more minutes crosses the
	// hour boundary and the counter expires.
	mr.FastForward(15 * time.Minute)
	if !limiter.Allow(ctx, model.NotifyVerification, "a@example.com") {
		t.Error("counter should have expired an hour after the first send")
	}
}

func TestAbuseLimiter_UnlistedKindUncapped(t *testing.T) {
	t.Parallel()

	c, _ := testCache(t)
	limits := map[model.NotificationKind]int{model.NotifyVerification: 1}
	limiter := NewAbuseLimiter(c, limits, discardLogger())

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if !limiter.Allow(ctx, model.NotifyPasswordChanged, "a@example.com") {
			t.Fatal("kinds without a cap entry should be uncapped")
		}
	}
}

func TestAbuseLimiter_FailsOpenOnStorageError(t *testing.T) {
	t.Parallel()

	c, mr := testCache(t)
	limiter := NewAbuseLimiter(c, nil, discardLogger())

	mr.Close()
	if !limiter.Allow(context.Background(), model.NotifyVerification, "a@example.com") {
		t.Error("storage outage should fail open")
	}
}
