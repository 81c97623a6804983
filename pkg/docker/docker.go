// Package docker implements command.Command against the Docker Engine API.
// One Client is safe for concurrent use by every build and invocation worker.
package docker

import (
	"context"
	"fmt"

	dc "github.com/docker/docker/client"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/util/console"
)

// NewClient connects to the daemon and verifies it answers a ping. The host
// comes from WithHost, falling back to the standard DOCKER_HOST environment
// handling.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	dockerClientOpts := []dc.Opt{
		dc.WithAPIVersionNegotiation(),
	}
	if options.host != "" {
		dockerClientOpts = append(dockerClientOpts, dc.WithHost(options.host))
	} else {
		dockerClientOpts = append(dockerClientOpts, dc.FromEnv)
	}

	client, err := dc.NewClientWithOpts(dockerClientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating docker client: %w", err)
	}

	if _, err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", command.ErrDaemonUnreachable, err)
	}

	return &Client{client: client}, nil
}

// Client is the production container runtime client.
type Client struct {
	client *dc.Client
}

var _ command.Command = (*Client)(nil)

// Ping reports the daemon's identity.
func (c *Client) Ping(ctx context.Context) (command.Info, error) {
	console.Debugf("=== Client.Ping")

	ping, err := c.client.Ping(ctx)
	if err != nil {
		return command.Info{}, fmt.Errorf("%w: %v", command.ErrDaemonUnreachable, err)
	}

	info := command.Info{
		APIVersion: ping.APIVersion,
		OSType:     ping.OSType,
	}

	// engine version is informational only, skip it if the call fails
	if version, err := c.client.ServerVersion(ctx); err == nil {
		info.ServerVersion = version.Version
	}

	return info, nil
}
