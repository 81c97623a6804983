package image

import (
	"context"
	"slices"
	"strings"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/errors"
	"github.com/autodeployr/engine/pkg/imagetag"
	"github.com/autodeployr/engine/pkg/invoke"
)

// Resolver maps invocation coordinates onto an existing image, repairing the
// drift between names as deployed and names as requested.
type Resolver struct {
	docker command.Command
	settings
}

func NewResolver(docker command.Command, opts ...Option) *Resolver {
	r := &Resolver{docker: docker, settings: defaultSettings()}
	for _, opt := range opts {
		opt(&r.settings)
	}
	return r
}

// resolveStrategy is one repair attempt. A miss is (zero, false, nil); an
// error aborts the whole resolution.
type resolveStrategy struct {
	name string
	try  func(ctx context.Context, r *Resolver, userID, appName, functionName string) (imagetag.ImageTag, bool, error)
}

// resolveStrategies runs in order, cheapest and most exact first. Appending
// here is the only way to extend resolution.
var resolveStrategies = []resolveStrategy{
	{name: "canonical", try: tryCanonical},
	{name: "suffix_stripped", try: trySuffixStripped},
	{name: "method_variants", try: tryMethodVariants},
	{name: "tenant_scan", try: tryTenantScan},
}

// methodSuffixes are the per-HTTP-method name variants deploys commonly
// append to a bare function name.
var methodSuffixes = []string{"_get", "_post", "_put", "_delete"}

// Resolve returns a fresh execution handle for the function, or a not-found
// error naming the tenant's deployed functions when no repair lands.
func (r *Resolver) Resolve(ctx context.Context, userID, appName, functionName string) (invoke.Container, error) {
	c, _, err := r.ResolveWithStrategy(ctx, userID, appName, functionName)
	return c, err
}

// ResolveWithStrategy is Resolve plus the name of the strategy that matched.
func (r *Resolver) ResolveWithStrategy(ctx context.Context, userID, appName, functionName string) (invoke.Container, string, error) {
	if imagetag.Sanitize(userID) == "" {
		return invoke.Container{}, "", errors.Validationf("tenant id %q is empty after sanitization", userID)
	}

	for _, s := range resolveStrategies {
		tag, ok, err := s.try(ctx, r, userID, appName, functionName)
		if err != nil {
			return invoke.Container{}, "", err
		}
		if !ok {
			continue
		}
		if s.name != "canonical" {
			r.log.Debugw("repaired image reference",
				"function", functionName,
				"strategy", s.name,
				"image", tag.String())
		}
		return invoke.Container{ImageTag: tag, FunctionName: functionName}, s.name, nil
	}

	return invoke.Container{}, "", r.notFound(ctx, userID, functionName)
}

func (r *Resolver) notFound(ctx context.Context, userID, functionName string) error {
	tags, err := r.tenantImages(ctx, userID)
	if err != nil || len(tags) == 0 {
		return errors.NotFoundf("no image found for function %q", functionName)
	}
	deployed := make([]string, 0, len(tags))
	for _, tag := range tags {
		deployed = append(deployed, tag.Identity().FunctionName)
	}
	slices.Sort(deployed)
	deployed = slices.Compact(deployed)
	return errors.NotFoundf("no image found for function %q, deployed functions are: %s",
		functionName, strings.Join(deployed, ", "))
}

func tryCanonical(ctx context.Context, r *Resolver, userID, appName, functionName string) (imagetag.ImageTag, bool, error) {
	return r.tryEncoded(ctx, userID, appName, functionName)
}

// trySuffixStripped retries without the last underscore-delimited chunk of
// the function name, catching requests for "checkout_v2" against a deploy
// that registered plain "checkout".
func trySuffixStripped(ctx context.Context, r *Resolver, userID, appName, functionName string) (imagetag.ImageTag, bool, error) {
	fn := imagetag.Sanitize(functionName)
	idx := strings.LastIndex(fn, "_")
	if idx <= 0 {
		return imagetag.ImageTag{}, false, nil
	}
	return r.tryEncoded(ctx, userID, appName, fn[:idx])
}

// tryMethodVariants retries with HTTP method suffixes appended, catching
// requests for "checkout" against a deploy that registered "checkout_get".
func tryMethodVariants(ctx context.Context, r *Resolver, userID, appName, functionName string) (imagetag.ImageTag, bool, error) {
	fn := imagetag.Sanitize(functionName)
	if fn == "" {
		return imagetag.ImageTag{}, false, nil
	}
	for _, suffix := range methodSuffixes {
		tag, ok, err := r.tryEncoded(ctx, userID, appName, fn+suffix)
		if err != nil || ok {
			return tag, ok, err
		}
	}
	return imagetag.ImageTag{}, false, nil
}

// tryTenantScan walks everything the tenant has deployed and picks the
// closest function name, preferring exact matches, then suffixed variants,
// then any tag that merely contains the name. This also repairs a wrong app
// segment, which the encoded strategies cannot.
func tryTenantScan(ctx context.Context, r *Resolver, userID, _, functionName string) (imagetag.ImageTag, bool, error) {
	fn := imagetag.Sanitize(functionName)
	if fn == "" {
		return imagetag.ImageTag{}, false, nil
	}
	tags, err := r.tenantImages(ctx, userID)
	if err != nil {
		return imagetag.ImageTag{}, false, err
	}

	var exact, variant, loose []imagetag.ImageTag
	for _, tag := range tags {
		candidate := tag.Identity().FunctionName
		switch {
		case candidate == fn:
			exact = append(exact, tag)
		case strings.HasPrefix(candidate, fn+"_"):
			variant = append(variant, tag)
		case strings.Contains(candidate, fn):
			loose = append(loose, tag)
		}
	}
	for _, tier := range [][]imagetag.ImageTag{exact, variant, loose} {
		if len(tier) > 0 {
			return tier[0], true, nil
		}
	}
	return imagetag.ImageTag{}, false, nil
}

func (r *Resolver) tryEncoded(ctx context.Context, userID, appName, functionName string) (imagetag.ImageTag, bool, error) {
	tag, err := imagetag.Encode(r.prefix, userID, appName, functionName)
	if err != nil {
		return imagetag.ImageTag{}, false, err
	}
	exists, err := r.docker.ImageExists(ctx, tag.String())
	if err != nil {
		return imagetag.ImageTag{}, false, err
	}
	return tag, exists, nil
}

// tenantImages lists the engine-owned images of one tenant, sorted by tag so
// scans pick deterministically.
func (r *Resolver) tenantImages(ctx context.Context, userID string) ([]imagetag.ImageTag, error) {
	summaries, err := r.docker.ImageList(ctx)
	if err != nil {
		return nil, err
	}
	prefix := imagetag.Sanitize(r.prefix)
	user := imagetag.Sanitize(userID)

	var out []imagetag.ImageTag
	for _, summary := range summaries {
		for _, repoTag := range summary.RepoTags {
			tag, err := imagetag.Parse(repoTag)
			if err != nil {
				continue
			}
			id := tag.Identity()
			if id.Prefix != prefix || id.UserID != user {
				continue
			}
			out = append(out, tag)
		}
	}
	slices.SortFunc(out, func(a, b imagetag.ImageTag) int {
		return strings.Compare(a.String(), b.String())
	})
	return out, nil
}
