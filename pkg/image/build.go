// Package image owns the lifecycle of per-function images: building them
// under tenant-scoped tags, resolving drifted references back onto them, and
// reclaiming the disk they and their build debris occupy.
package image

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"time"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/errors"
	"github.com/autodeployr/engine/pkg/global"
	"github.com/autodeployr/engine/pkg/imagetag"
	"github.com/autodeployr/engine/pkg/invoke"
	"github.com/autodeployr/engine/pkg/util/files"
)

// BuildRequest describes one function build.
type BuildRequest struct {
	// BuildPath is the prepared build directory. It must contain a Dockerfile
	// at its root.
	BuildPath    string
	UserID       string
	AppName      string
	FunctionName string
	// EnvVars are persisted for the tenant once the build commits.
	EnvVars map[string]string
	NoCache bool
	// Output receives the streamed daemon build log. Nil discards it.
	Output io.Writer
}

// Builder turns prepared build directories into tagged function images.
type Builder struct {
	docker command.Command
	settings
}

func NewBuilder(docker command.Command, opts ...Option) *Builder {
	b := &Builder{docker: docker, settings: defaultSettings()}
	for _, opt := range opts {
		opt(&b.settings)
	}
	return b
}

// Build produces the image for one function and returns its execution
// handle. Any previous image under the same tag is removed first, so a
// redeploy always replaces. Post-build housekeeping runs only after the
// image has committed and is logged rather than escalated: a missed layer
// sweep or env write must not turn a finished build into a failure.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (invoke.Container, error) {
	if req.BuildPath == "" {
		return invoke.Container{}, errors.Validationf("build path is empty")
	}
	exists, err := files.Exists(req.BuildPath)
	if err != nil {
		return invoke.Container{}, err
	}
	if !exists {
		return invoke.Container{}, errors.NotFoundf("build path %s does not exist", req.BuildPath)
	}
	isDir, err := files.IsDir(req.BuildPath)
	if err != nil {
		return invoke.Container{}, err
	}
	if !isDir {
		return invoke.Container{}, errors.Validationf("build path %s is not a directory", req.BuildPath)
	}
	hasDockerfile, err := files.Exists(filepath.Join(req.BuildPath, "Dockerfile"))
	if err != nil {
		return invoke.Container{}, err
	}
	if !hasDockerfile {
		return invoke.Container{}, errors.NotFoundf("no Dockerfile found in %s", req.BuildPath)
	}

	tag, err := imagetag.Encode(b.prefix, req.UserID, req.AppName, req.FunctionName)
	if err != nil {
		return invoke.Container{}, err
	}

	b.replaceExisting(ctx, tag)

	out := req.Output
	if out == nil {
		out = io.Discard
	}

	id := tag.Identity()
	err = b.docker.ImageBuild(ctx, command.ImageBuildOptions{
		ContextDir: req.BuildPath,
		Dockerfile: "Dockerfile",
		ImageName:  tag.String(),
		Labels: map[string]string{
			global.LabelNamespace + ".user":     id.UserID,
			global.LabelNamespace + ".app":      id.AppName,
			global.LabelNamespace + ".function": id.FunctionName,
			global.LabelNamespace + ".built-at": time.Now().UTC().Format(time.RFC3339),
		},
		NoCache: req.NoCache,
		Output:  out,
	})
	if err != nil {
		return invoke.Container{}, errors.BuildFailed(fmt.Sprintf("failed to build image %q", tag.String()), err)
	}
	b.log.Infow("built function image",
		"image", tag.String(),
		"user", id.UserID,
		"function", id.FunctionName)

	b.afterBuild(ctx, tag, req.EnvVars)

	return invoke.Container{ImageTag: tag, FunctionName: req.FunctionName}, nil
}

// replaceExisting drops the previous image under the tag so the daemon
// cannot keep serving a stale build after a redeploy. A missing image is
// the common case; anything else is logged and the build proceeds, since
// the fresh build will take the name over anyway.
func (b *Builder) replaceExisting(ctx context.Context, tag imagetag.ImageTag) {
	err := b.docker.ImageRemove(ctx, tag.String())
	switch {
	case err == nil:
		b.log.Debugw("removed previous function image", "image", tag.String())
	case command.IsNotFoundError(err):
	default:
		b.log.Warnw("failed to remove previous function image",
			"image", tag.String(),
			"error", err)
	}
}

func (b *Builder) afterBuild(ctx context.Context, tag imagetag.ImageTag, envVars map[string]string) {
	if n, err := sweepRecentDangling(ctx, b.docker, b.log, b.sweepWindow); err != nil {
		b.log.Warnw("failed to sweep dangling layers after build", "error", err)
	} else if n > 0 {
		b.log.Debugw("swept dangling layers left by build", "count", n)
	}

	if len(envVars) == 0 || b.env == nil {
		return
	}
	userID := tag.Identity().UserID
	merged, err := b.env.Get(ctx, userID)
	if err != nil {
		b.log.Warnw("failed to load stored env vars", "user", userID, "error", err)
		return
	}
	maps.Copy(merged, envVars)
	if changed, err := b.env.Put(ctx, userID, merged); err != nil {
		b.log.Warnw("failed to persist env vars", "user", userID, "error", err)
	} else if changed {
		b.log.Debugw("persisted env vars", "user", userID, "count", len(merged))
	}
}
