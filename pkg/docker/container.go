package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/util/console"
)

func (c *Client) ContainerStart(ctx context.Context, options command.RunOptions) (string, error) {
	console.Debugf("=== Client.ContainerStart %s", options.Image)

	containerCfg := &container.Config{
		Image:  options.Image,
		Cmd:    options.Args,
		Env:    options.Env,
		Labels: options.Labels,
	}
	if options.Workdir != "" {
		containerCfg.WorkingDir = options.Workdir
	}

	hostCfg := &container.HostConfig{}
	if options.NetworkMode != "" {
		hostCfg.NetworkMode = container.NetworkMode(options.NetworkMode)
	}
	if len(options.ExtraHosts) > 0 {
		hostCfg.ExtraHosts = options.ExtraHosts
	}
	if options.ShmSize > 0 {
		hostCfg.ShmSize = options.ShmSize
	}

	if len(options.Ports) > 0 {
		containerCfg.ExposedPorts = make(nat.PortSet)
		hostCfg.PortBindings = make(nat.PortMap)
		for _, port := range options.Ports {
			containerPort := nat.Port(fmt.Sprintf("%d/tcp", port.ContainerPort))
			containerCfg.ExposedPorts[containerPort] = struct{}{}
			hostCfg.PortBindings[containerPort] = []nat.PortBinding{
				{
					HostIP:   "", // use empty string to bind to all interfaces
					HostPort: strconv.Itoa(port.HostPort),
				},
			}
		}
	}

	created, err := c.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, options.Name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", &command.NotFoundError{Ref: options.Image, Object: "image"}
		}
		return "", fmt.Errorf("failed to create container for image %q: %w", options.Image, err)
	}

	if err := c.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		// a created-but-never-started container would leak
		if rmErr := c.ContainerRemove(context.WithoutCancel(ctx), created.ID); rmErr != nil && !command.IsNotFoundError(rmErr) {
			console.Warnf("failed to remove container %q after start failure: %s", created.ID, rmErr)
		}
		return "", fmt.Errorf("failed to start container %q: %w", created.ID, err)
	}

	return created.ID, nil
}

func (c *Client) ContainerWait(ctx context.Context, containerID string) (int64, error) {
	console.Debugf("=== Client.ContainerWait %s", containerID)

	statusCh, errCh := c.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case err := <-errCh:
		if client.IsErrNotFound(err) {
			return 0, &command.NotFoundError{Ref: containerID, Object: "container"}
		}
		return 0, fmt.Errorf("error waiting for container %q: %w", containerID, err)
	case status := <-statusCh:
		if status.Error != nil {
			return status.StatusCode, fmt.Errorf("wait for container %q reported: %s", containerID, status.Error.Message)
		}
		return status.StatusCode, nil
	}
}

func (c *Client) ContainerLogs(ctx context.Context, containerID string, w io.Writer) error {
	console.Debugf("=== Client.ContainerLogs %s", containerID)

	logs, err := c.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return &command.NotFoundError{Ref: containerID, Object: "container"}
		}
		return fmt.Errorf("failed to get container logs for %q: %w", containerID, err)
	}
	defer logs.Close()

	// engine containers never allocate a TTY, so the stream is always
	// multiplexed; fold stdout and stderr into one writer
	if _, err := stdcopy.StdCopy(w, w, logs); err != nil {
		return fmt.Errorf("failed to copy logs for %q: %w", containerID, err)
	}
	return nil
}

func (c *Client) ContainerRemove(ctx context.Context, containerID string) error {
	console.Debugf("=== Client.ContainerRemove %s", containerID)

	err := c.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err != nil {
		if client.IsErrNotFound(err) {
			return &command.NotFoundError{Ref: containerID, Object: "container"}
		}
		return fmt.Errorf("failed to remove container %q: %w", containerID, err)
	}
	return nil
}
