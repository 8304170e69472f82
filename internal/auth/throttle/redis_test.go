package throttle_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/throttle"
	"github.com/aussiebroadwan/gatekeeper/internal/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisThrottler(t *testing.T) {
	addr := testutil.StartRedis(t)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	th := throttle.NewRedis(client, "test", throttle.Config{Limit: 2, TTL: 60 * time.Second})

	require.NoError(t, th.TrackRequest(ctx, "x"))
	require.NoError(t, th.TrackRequest(ctx, "x"))

	err := th.TrackRequest(ctx, "x")
	require.ErrorIs(t, err, domain.ErrThrottled)

	var te *throttle.Error
	require.ErrorAs(t, err, &te)
	require.InDelta(t, 60, te.Seconds(), 2)

	remaining, err := th.RemainingRequests(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, 0, remaining)

	require.NoError(t, th.Reset(ctx, "x"))
	remaining, err = th.RemainingRequests(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, 2, remaining)

	allowed, err := th.IsAllowed(ctx, "x")
	require.NoError(t, err)
	require.True(t, allowed)

	require.ErrorIs(t, th.TrackRequest(ctx, ""), domain.ErrInvalidThrottleIdentifier)
}
