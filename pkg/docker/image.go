package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/util/console"
)

func (c *Client) ImageExists(ctx context.Context, ref string) (bool, error) {
	console.Debugf("=== Client.ImageExists %s", ref)

	_, err := c.client.ImageInspect(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect image %q: %w", ref, err)
	}
	return true, nil
}

func (c *Client) ImageList(ctx context.Context) ([]command.ImageSummary, error) {
	console.Debugf("=== Client.ImageList")

	images, err := c.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return toSummaries(images), nil
}

func (c *Client) ImageListDangling(ctx context.Context) ([]command.ImageSummary, error) {
	console.Debugf("=== Client.ImageListDangling")

	images, err := c.client.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("dangling", "true")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list dangling images: %w", err)
	}
	return toSummaries(images), nil
}

func (c *Client) ImageRemove(ctx context.Context, ref string) error {
	console.Debugf("=== Client.ImageRemove %s", ref)

	_, err := c.client.ImageRemove(ctx, ref, image.RemoveOptions{
		Force:         true,
		PruneChildren: true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return &command.NotFoundError{Ref: ref, Object: "image"}
		}
		return fmt.Errorf("failed to remove image %q: %w", ref, err)
	}
	return nil
}

func (c *Client) ImagesPruneDangling(ctx context.Context) (command.PruneResult, error) {
	console.Debugf("=== Client.ImagesPruneDangling")

	report, err := c.client.ImagesPrune(ctx, filters.NewArgs(filters.Arg("dangling", "true")))
	if err != nil {
		return command.PruneResult{}, fmt.Errorf("failed to prune dangling images: %w", err)
	}

	removed := 0
	for _, deleted := range report.ImagesDeleted {
		if deleted.Deleted != "" {
			removed++
		}
	}
	return command.PruneResult{
		ImagesRemoved:  removed,
		SpaceReclaimed: report.SpaceReclaimed,
	}, nil
}

func toSummaries(images []image.Summary) []command.ImageSummary {
	summaries := make([]command.ImageSummary, 0, len(images))
	for _, img := range images {
		summaries = append(summaries, command.ImageSummary{
			ID:       img.ID,
			RepoTags: img.RepoTags,
			Created:  time.Unix(img.Created, 0),
			Labels:   img.Labels,
		})
	}
	return summaries
}
