package image

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/errors"
	"github.com/autodeployr/engine/pkg/imagetag"
)

// removeConcurrency caps parallel image removals so a tenant-wide purge does
// not saturate the daemon.
const removeConcurrency = 4

// Reclaimer deletes engine-owned images and the layer debris builds leave
// behind.
type Reclaimer struct {
	docker command.Command
	settings
}

func NewReclaimer(docker command.Command, opts ...Option) *Reclaimer {
	r := &Reclaimer{docker: docker, settings: defaultSettings()}
	for _, opt := range opts {
		opt(&r.settings)
	}
	return r
}

// RemoveFunctionImages removes every engine image whose tag names the
// function or one of its method-suffixed variants, across all tenants and
// apps. Returns the number removed.
func (r *Reclaimer) RemoveFunctionImages(ctx context.Context, functionName string) (int, error) {
	fn := imagetag.Sanitize(functionName)
	if fn == "" {
		return 0, errors.Validationf("function name %q is empty after sanitization", functionName)
	}
	return r.removeMatching(ctx, func(id imagetag.Identity) bool {
		return id.FunctionName == fn || strings.HasPrefix(id.FunctionName, fn+"_")
	})
}

// RemoveTenantImages removes every engine image the tenant owns.
func (r *Reclaimer) RemoveTenantImages(ctx context.Context, userID string) (int, error) {
	user := imagetag.Sanitize(userID)
	if user == "" {
		return 0, errors.Validationf("tenant id %q is empty after sanitization", userID)
	}
	return r.removeMatching(ctx, func(id imagetag.Identity) bool {
		return id.UserID == user
	})
}

func (r *Reclaimer) removeMatching(ctx context.Context, match func(imagetag.Identity) bool) (int, error) {
	summaries, err := r.docker.ImageList(ctx)
	if err != nil {
		return 0, err
	}
	prefix := imagetag.Sanitize(r.prefix)

	var refs []string
	for _, summary := range summaries {
		for _, repoTag := range summary.RepoTags {
			tag, err := imagetag.Parse(repoTag)
			if err != nil {
				continue
			}
			id := tag.Identity()
			if id.Prefix != prefix || !match(id) {
				continue
			}
			refs = append(refs, tag.String())
		}
	}

	var removed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(removeConcurrency)
	for _, ref := range refs {
		g.Go(func() error {
			if err := r.docker.ImageRemove(ctx, ref); err != nil {
				if command.IsNotFoundError(err) {
					return nil
				}
				return fmt.Errorf("failed to remove image %q: %w", ref, err)
			}
			removed.Add(1)
			r.log.Debugw("removed image", "image", ref)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(removed.Load()), err
	}
	return int(removed.Load()), nil
}

// SweepDangling prunes every dangling layer on the daemon.
func (r *Reclaimer) SweepDangling(ctx context.Context) (command.PruneResult, error) {
	result, err := r.docker.ImagesPruneDangling(ctx)
	if err != nil {
		return command.PruneResult{}, fmt.Errorf("failed to prune dangling images: %w", err)
	}
	if result.ImagesRemoved > 0 {
		r.log.Infow("pruned dangling images",
			"count", result.ImagesRemoved,
			"reclaimed_bytes", result.SpaceReclaimed)
	}
	return result, nil
}

// SweepRecentDangling removes only the dangling layers created within the
// window, the debris a just-finished build orphaned, leaving older layers
// for an explicit sweep.
func (r *Reclaimer) SweepRecentDangling(ctx context.Context, window time.Duration) (int, error) {
	if window <= 0 {
		window = r.sweepWindow
	}
	return sweepRecentDangling(ctx, r.docker, r.log, window)
}

func sweepRecentDangling(ctx context.Context, docker command.Command, log *zap.SugaredLogger, window time.Duration) (int, error) {
	images, err := docker.ImageListDangling(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-window)

	removed := 0
	for _, img := range images {
		if img.Created.Before(cutoff) {
			continue
		}
		if err := docker.ImageRemove(ctx, img.ID); err != nil {
			if command.IsNotFoundError(err) {
				continue
			}
			log.Debugw("failed to remove dangling layer", "id", img.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
