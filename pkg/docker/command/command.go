// Package command defines the engine's view of the container runtime. The
// production implementation talks to the Docker Engine API; tests substitute
// an in-memory fake.
package command

import (
	"context"
	"io"
	"time"
)

type Command interface {
	// Ping verifies the runtime is reachable and reports its identity.
	Ping(ctx context.Context) (Info, error)

	ImageBuild(ctx context.Context, options ImageBuildOptions) error
	ImageExists(ctx context.Context, ref string) (bool, error)
	// ImageList returns all tagged images known to the runtime.
	ImageList(ctx context.Context) ([]ImageSummary, error)
	// ImageListDangling returns untagged image layers.
	ImageListDangling(ctx context.Context) ([]ImageSummary, error)
	// ImageRemove force-removes one image. Returns a NotFoundError if the
	// image is already gone.
	ImageRemove(ctx context.Context, ref string) error
	// ImagesPruneDangling removes all dangling image layers in one call.
	ImagesPruneDangling(ctx context.Context) (PruneResult, error)

	// ContainerStart creates and starts a container, returning its id.
	ContainerStart(ctx context.Context, options RunOptions) (string, error)
	// ContainerWait blocks until the container stops and returns its exit
	// code. Cancelling ctx abandons the wait, not the container.
	ContainerWait(ctx context.Context, containerID string) (int64, error)
	// ContainerLogs copies the container's combined stdout+stderr to w.
	ContainerLogs(ctx context.Context, containerID string, w io.Writer) error
	// ContainerRemove force-removes a container, running or not.
	ContainerRemove(ctx context.Context, containerID string) error
}

// Info describes the runtime behind the client.
type Info struct {
	APIVersion    string
	OSType        string
	ServerVersion string
}

type ImageBuildOptions struct {
	// ContextDir is the build context directory.
	ContextDir string
	// Dockerfile is relative to ContextDir, "Dockerfile" when empty.
	Dockerfile string
	ImageName  string
	Labels     map[string]string
	NoCache    bool
	// Output receives the decoded build progress stream; discarded when nil.
	Output io.Writer
}

type RunOptions struct {
	Image       string
	Name        string
	Args        []string
	Env         []string
	Labels      map[string]string
	NetworkMode string
	ExtraHosts  []string
	Ports       []Port
	Workdir     string
	// ShmSize sets /dev/shm in bytes; 0 keeps the runtime default.
	ShmSize int64
}

type Port struct {
	HostPort      int
	ContainerPort int
}

type ImageSummary struct {
	ID       string
	RepoTags []string
	Created  time.Time
	Labels   map[string]string
}

type PruneResult struct {
	ImagesRemoved  int
	SpaceReclaimed uint64
}
