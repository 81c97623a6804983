package docker

import (
	"context"
	"fmt"

	goversion "github.com/hashicorp/go-version"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/errors"
)

// MinAPIVersion is the oldest daemon API the engine is known to work with;
// older daemons lack the prune filters the reclaimer depends on.
const MinAPIVersion = "1.41"

// VerifyAPIVersion pings the daemon and rejects one too old to serve the
// engine.
func (c *Client) VerifyAPIVersion(ctx context.Context) (command.Info, error) {
	info, err := c.Ping(ctx)
	if err != nil {
		return command.Info{}, errors.RuntimeUnavailable("container runtime did not answer ping", err)
	}

	min, err := goversion.NewVersion(MinAPIVersion)
	if err != nil {
		return info, fmt.Errorf("cannot parse minimum API version %q: %w", MinAPIVersion, err)
	}
	got, err := goversion.NewVersion(info.APIVersion)
	if err != nil {
		return info, fmt.Errorf("cannot parse daemon API version %q: %w", info.APIVersion, err)
	}

	if got.LessThan(min) {
		return info, errors.RuntimeUnavailable(
			fmt.Sprintf("daemon API version %s is older than the minimum supported %s", info.APIVersion, MinAPIVersion), nil)
	}

	return info, nil
}
