package image

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/autodeployr/engine/pkg/docker/dockertest"
	"github.com/autodeployr/engine/pkg/envstore"
	"github.com/autodeployr/engine/pkg/errors"
)

func writeBuildDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dockerfile := "FROM python:3.11-slim\nCOPY . /app\nWORKDIR /app\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(dockerfile), 0o644))
	return dir
}

func TestBuildProducesTaggedImage(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	dir := writeBuildDir(t)

	b := NewBuilder(fake)
	container, err := b.Build(context.Background(), BuildRequest{
		BuildPath:    dir,
		UserID:       "alice",
		AppName:      "shop",
		FunctionName: "checkout",
	})
	require.NoError(t, err)
	require.Equal(t, "autodeployr-alice-shop-checkout", container.ImageTag.String())
	require.Equal(t, "checkout", container.FunctionName)
	require.NotEmpty(t, fake.ImageID("autodeployr-alice-shop-checkout"))

	calls := fake.BuildCalls()
	require.Len(t, calls, 1)
	require.Equal(t, dir, calls[0].ContextDir)
	require.Equal(t, "Dockerfile", calls[0].Dockerfile)
	require.Equal(t, "autodeployr-alice-shop-checkout", calls[0].ImageName)
	require.Equal(t, "alice", calls[0].Labels["org.autodeployr.user"])
	require.Equal(t, "shop", calls[0].Labels["org.autodeployr.app"])
	require.Equal(t, "checkout", calls[0].Labels["org.autodeployr.function"])
	require.NotEmpty(t, calls[0].Labels["org.autodeployr.built-at"])
}

func TestBuildSanitizesIdentity(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	dir := writeBuildDir(t)

	b := NewBuilder(fake)
	container, err := b.Build(context.Background(), BuildRequest{
		BuildPath:    dir,
		UserID:       "Alice Smith",
		AppName:      "My Shop!",
		FunctionName: "check-out",
	})
	require.NoError(t, err)
	require.Equal(t, "autodeployr-alice_smith-my_shop-check_out", container.ImageTag.String())
}

func TestBuildValidatesRequest(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	b := NewBuilder(fake)
	ctx := context.Background()

	_, err := b.Build(ctx, BuildRequest{UserID: "alice"})
	require.True(t, errors.IsValidation(err))

	_, err = b.Build(ctx, BuildRequest{BuildPath: filepath.Join(t.TempDir(), "missing"), UserID: "alice"})
	require.True(t, errors.IsNotFound(err))

	// A directory without a Dockerfile is not buildable.
	_, err = b.Build(ctx, BuildRequest{BuildPath: t.TempDir(), UserID: "alice"})
	require.True(t, errors.IsNotFound(err))
	require.Contains(t, err.Error(), "Dockerfile")

	require.Empty(t, fake.BuildCalls())
}

func TestBuildFailsClosedWithoutTenant(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	dir := writeBuildDir(t)

	b := NewBuilder(fake)
	_, err := b.Build(context.Background(), BuildRequest{
		BuildPath:    dir,
		UserID:       "!!!",
		AppName:      "shop",
		FunctionName: "checkout",
	})
	require.True(t, errors.IsValidation(err))
	require.Empty(t, fake.BuildCalls())
}

func TestBuildReplacesPreviousImage(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	dir := writeBuildDir(t)
	fake.SeedImage("autodeployr-alice-shop-checkout")
	previous := fake.ImageID("autodeployr-alice-shop-checkout")

	b := NewBuilder(fake)
	container, err := b.Build(context.Background(), BuildRequest{
		BuildPath:    dir,
		UserID:       "alice",
		AppName:      "shop",
		FunctionName: "checkout",
	})
	require.NoError(t, err)

	current := fake.ImageID(container.ImageTag.String())
	require.NotEmpty(t, current)
	require.NotEqual(t, previous, current)
}

func TestBuildFailureSurfacesDaemonError(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	fake.BuildErr = fmt.Errorf("process \"/bin/sh -c pip install -r requirements.txt\" did not complete successfully")
	dir := writeBuildDir(t)

	b := NewBuilder(fake)
	_, err := b.Build(context.Background(), BuildRequest{
		BuildPath:    dir,
		UserID:       "alice",
		AppName:      "shop",
		FunctionName: "checkout",
	})
	require.True(t, errors.IsBuildFailed(err))
	require.Contains(t, err.Error(), "pip install")
}

func TestBuildPersistsEnvVars(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	store := envstore.NewMemory()
	dir := writeBuildDir(t)
	ctx := context.Background()

	b := NewBuilder(fake, WithEnvStore(store))
	_, err := b.Build(ctx, BuildRequest{
		BuildPath:    dir,
		UserID:       "alice",
		AppName:      "shop",
		FunctionName: "checkout",
		EnvVars:      map[string]string{"API_KEY": "secret"},
	})
	require.NoError(t, err)

	vars, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"API_KEY": "secret"}, vars)

	// A later build for the same tenant merges rather than replaces.
	_, err = b.Build(ctx, BuildRequest{
		BuildPath:    dir,
		UserID:       "alice",
		AppName:      "shop",
		FunctionName: "refund",
		EnvVars:      map[string]string{"REGION": "eu-west-1"},
	})
	require.NoError(t, err)

	vars, err = store.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"API_KEY": "secret", "REGION": "eu-west-1"}, vars)
}

func TestBuildSweepsRecentDanglingLayers(t *testing.T) {
	fake := dockertest.NewFakeEngine()
	fake.SeedDangling("sha256:fresh", time.Now())
	fake.SeedDangling("sha256:stale", time.Now().Add(-time.Hour))
	dir := writeBuildDir(t)

	b := NewBuilder(fake)
	_, err := b.Build(context.Background(), BuildRequest{
		BuildPath:    dir,
		UserID:       "alice",
		AppName:      "shop",
		FunctionName: "checkout",
	})
	require.NoError(t, err)

	remaining, err := fake.ImageListDangling(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "sha256:stale", remaining[0].ID)
}
