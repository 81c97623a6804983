package image

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/autodeployr/engine/pkg/docker/dockertest"
	"github.com/autodeployr/engine/pkg/errors"
)

func TestRemoveFunctionImages(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	for _, tag := range []string{
		"autodeployr-alice-shop-checkout",
		"autodeployr-alice-billing-checkout",
		"autodeployr-bob-shop-checkout",
		"autodeployr-alice-shop-refund",
	} {
		fake.SeedImage(tag)
	}
	ctx := context.Background()

	r := NewReclaimer(fake)
	removed, err := r.RemoveFunctionImages(ctx, "checkout")
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	exists, err := fake.ImageExists(ctx, "autodeployr-alice-shop-refund")
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = fake.ImageExists(ctx, "autodeployr-alice-shop-checkout")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRemoveFunctionImagesSanitizesName(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	fake.SeedImage("autodeployr-alice-shop-check_out")
	ctx := context.Background()

	r := NewReclaimer(fake)
	removed, err := r.RemoveFunctionImages(ctx, "Check-Out")
	require.NoError(t, err)
	require.Equal(t, 1, removed)
}

func TestRemoveFunctionImagesIncludesMethodVariants(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	for _, tag := range []string{
		"autodeployr-alice-shop-checkout",
		"autodeployr-alice-shop-checkout_get",
		"autodeployr-alice-shop-checkout_post",
		"autodeployr-alice-shop-checkout2",
	} {
		fake.SeedImage(tag)
	}
	ctx := context.Background()

	r := NewReclaimer(fake)
	removed, err := r.RemoveFunctionImages(ctx, "checkout")
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	exists, err := fake.ImageExists(ctx, "autodeployr-alice-shop-checkout_get")
	require.NoError(t, err)
	require.False(t, exists)
	// Sharing a prefix is not the same as being a variant.
	exists, err = fake.ImageExists(ctx, "autodeployr-alice-shop-checkout2")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRemoveTenantImages(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	for _, tag := range []string{
		"autodeployr-alice-shop-checkout",
		"autodeployr-alice-billing-invoice",
		"autodeployr-bob-shop-refund",
	} {
		fake.SeedImage(tag)
	}
	ctx := context.Background()

	r := NewReclaimer(fake)
	removed, err := r.RemoveTenantImages(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	exists, err := fake.ImageExists(ctx, "autodeployr-bob-shop-refund")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRemoveLeavesForeignImagesAlone(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	fake.SeedImage("autodeployr-alice-shop-checkout")
	// Same shape, different prefix: not ours to delete.
	fake.SeedImage("deployster-alice-shop-checkout")
	fake.SeedImage("postgres")
	ctx := context.Background()

	r := NewReclaimer(fake)
	removed, err := r.RemoveTenantImages(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	exists, err := fake.ImageExists(ctx, "deployster-alice-shop-checkout")
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = fake.ImageExists(ctx, "postgres")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRemoveValidatesInput(t *testing.T) {
	r := NewReclaimer(dockertest.NewFakeEngine())
	ctx := context.Background()

	_, err := r.RemoveFunctionImages(ctx, "!!!")
	require.True(t, errors.IsValidation(err))
	_, err = r.RemoveTenantImages(ctx, "")
	require.True(t, errors.IsValidation(err))
}

func TestSweepDangling(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	fake.SeedDangling("sha256:aaa", time.Now())
	fake.SeedDangling("sha256:bbb", time.Now().Add(-time.Hour))
	ctx := context.Background()

	r := NewReclaimer(fake)
	result, err := r.SweepDangling(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.ImagesRemoved)
	require.NotZero(t, result.SpaceReclaimed)

	remaining, err := fake.ImageListDangling(ctx)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestSweepRecentDanglingHonorsWindow(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	fake.SeedDangling("sha256:fresh", time.Now())
	fake.SeedDangling("sha256:stale", time.Now().Add(-time.Hour))
	ctx := context.Background()

	r := NewReclaimer(fake)
	removed, err := r.SweepRecentDangling(ctx, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	remaining, err := fake.ImageListDangling(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "sha256:stale", remaining[0].ID)
}
