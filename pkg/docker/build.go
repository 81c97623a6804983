package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/util/console"
)

func (c *Client) ImageBuild(ctx context.Context, options command.ImageBuildOptions) error {
	console.Debugf("=== Client.ImageBuild %s", options.ImageName)

	if options.ContextDir == "" {
		return fmt.Errorf("build context directory is required")
	}
	if options.ImageName == "" {
		return fmt.Errorf("image name is required")
	}

	dockerfile := options.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	buildContext, err := archive.TarWithOptions(options.ContextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to tar build context %q: %w", options.ContextDir, err)
	}
	defer buildContext.Close()

	resp, err := c.client.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Tags:        []string{options.ImageName},
		Dockerfile:  dockerfile,
		Labels:      options.Labels,
		NoCache:     options.NoCache,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start build of %q: %w", options.ImageName, err)
	}
	defer resp.Body.Close()

	out := options.Output
	if out == nil {
		out = io.Discard
	}
	var fd uintptr
	isTTY := false
	if f, ok := out.(*os.File); ok {
		fd = f.Fd()
		isTTY = console.IsTTY(f)
	}

	// the response body is a json progress stream; the daemon reports build
	// failures inside it, not on the initial call
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, out, fd, isTTY, nil); err != nil {
		var streamErr *jsonmessage.JSONError
		if errors.As(err, &streamErr) {
			return fmt.Errorf("build of %q failed: %s", options.ImageName, streamErr.Message)
		}
		return fmt.Errorf("error reading build stream for %q: %w", options.ImageName, err)
	}

	return nil
}
