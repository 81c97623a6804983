// Package dockertest provides an in-memory command.Command for tests: images
// are map entries, containers are scripted per image, and nothing touches a
// real daemon.
package dockertest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/autodeployr/engine/pkg/docker/command"
)

// RunScript describes how containers started from one image behave.
type RunScript struct {
	// Logs is the combined output ContainerLogs returns.
	Logs string
	// ExitCode is the wait result.
	ExitCode int64
	// Delay holds the wait open before returning ExitCode.
	Delay time.Duration
	// Hang blocks ContainerWait until the caller's context ends.
	Hang bool
	// StartErr fails ContainerStart.
	StartErr error
	// WaitErr fails ContainerWait after Delay.
	WaitErr error
	// LogsErr fails ContainerLogs.
	LogsErr error
}

type fakeImage struct {
	id      string
	created time.Time
	labels  map[string]string
}

type fakeContainer struct {
	id      string
	image   string
	options command.RunOptions
}

// FakeEngine implements command.Command entirely in memory.
type FakeEngine struct {
	mu         sync.Mutex
	info       command.Info
	images     map[string]fakeImage
	dangling   []command.ImageSummary
	containers map[string]*fakeContainer
	scripts    map[string]RunScript
	seq        int
	lastRun    *command.RunOptions

	// BuildErr fails the next ImageBuild calls until cleared.
	BuildErr error
	// PingErr fails Ping.
	PingErr error

	buildCalls []command.ImageBuildOptions
	removed    []string
}

var _ command.Command = (*FakeEngine)(nil)

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		info: command.Info{
			APIVersion:    "1.49",
			OSType:        "linux",
			ServerVersion: "28.1.1",
		},
		images:     make(map[string]fakeImage),
		containers: make(map[string]*fakeContainer),
		scripts:    make(map[string]RunScript),
	}
}

// OnRun scripts the containers started from image ref.
func (f *FakeEngine) OnRun(ref string, script RunScript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[trimRef(ref)] = script
}

// SeedImage records an image as already built.
func (f *FakeEngine) SeedImage(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.images[trimRef(ref)] = fakeImage{
		id:      fmt.Sprintf("sha256:fake%04d", f.seq),
		created: time.Now(),
	}
}

// SeedDangling records an untagged layer.
func (f *FakeEngine) SeedDangling(id string, created time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dangling = append(f.dangling, command.ImageSummary{ID: id, Created: created})
}

// ImageID returns the recorded id for ref, or "".
func (f *FakeEngine) ImageID(ref string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[trimRef(ref)].id
}

// LiveContainers counts containers that were started and never removed.
func (f *FakeEngine) LiveContainers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.containers)
}

// RemovedContainers returns the ids removed so far, in order.
func (f *FakeEngine) RemovedContainers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.removed))
	copy(out, f.removed)
	return out
}

// StartedOptions returns the RunOptions recorded for a live or removed
// container id.
func (f *FakeEngine) StartedOptions(containerID string) (command.RunOptions, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctr, ok := f.containers[containerID]; ok {
		return ctr.options, true
	}
	return command.RunOptions{}, false
}

// LastRunOptions returns the options of the most recently started container.
func (f *FakeEngine) LastRunOptions() (command.RunOptions, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastRun == nil {
		return command.RunOptions{}, false
	}
	return *f.lastRun, true
}

// BuildCalls returns every ImageBuild invocation observed.
func (f *FakeEngine) BuildCalls() []command.ImageBuildOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]command.ImageBuildOptions, len(f.buildCalls))
	copy(out, f.buildCalls)
	return out
}

func (f *FakeEngine) Ping(ctx context.Context) (command.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PingErr != nil {
		return command.Info{}, f.PingErr
	}
	return f.info, nil
}

func (f *FakeEngine) ImageBuild(ctx context.Context, options command.ImageBuildOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildCalls = append(f.buildCalls, options)
	if f.BuildErr != nil {
		return f.BuildErr
	}
	f.seq++
	f.images[trimRef(options.ImageName)] = fakeImage{
		id:      fmt.Sprintf("sha256:fake%04d", f.seq),
		created: time.Now(),
		labels:  options.Labels,
	}
	return nil
}

func (f *FakeEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.images[trimRef(ref)]
	return ok, nil
}

func (f *FakeEngine) ImageList(ctx context.Context) ([]command.ImageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summaries := make([]command.ImageSummary, 0, len(f.images))
	for tag, img := range f.images {
		summaries = append(summaries, command.ImageSummary{
			ID:       img.id,
			RepoTags: []string{tag + ":latest"},
			Created:  img.created,
			Labels:   img.labels,
		})
	}
	return summaries, nil
}

func (f *FakeEngine) ImageListDangling(ctx context.Context) ([]command.ImageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]command.ImageSummary, len(f.dangling))
	copy(out, f.dangling)
	return out, nil
}

func (f *FakeEngine) ImageRemove(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := trimRef(ref)
	if _, ok := f.images[key]; ok {
		delete(f.images, key)
		return nil
	}
	for i, img := range f.dangling {
		if img.ID == ref {
			f.dangling = append(f.dangling[:i], f.dangling[i+1:]...)
			return nil
		}
	}
	return &command.NotFoundError{Ref: ref, Object: "image"}
}

func (f *FakeEngine) ImagesPruneDangling(ctx context.Context) (command.PruneResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := len(f.dangling)
	f.dangling = nil
	return command.PruneResult{
		ImagesRemoved:  removed,
		SpaceReclaimed: uint64(removed) * 1024,
	}, nil
}

func (f *FakeEngine) ContainerStart(ctx context.Context, options command.RunOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := trimRef(options.Image)
	script, scripted := f.scripts[key]
	if scripted && script.StartErr != nil {
		return "", script.StartErr
	}
	if _, built := f.images[key]; !built && !scripted {
		return "", &command.NotFoundError{Ref: options.Image, Object: "image"}
	}

	f.seq++
	id := fmt.Sprintf("ctr%04d", f.seq)
	ctr := &fakeContainer{id: id, image: key, options: options}
	f.containers[id] = ctr
	f.lastRun = &ctr.options
	return id, nil
}

func (f *FakeEngine) ContainerWait(ctx context.Context, containerID string) (int64, error) {
	f.mu.Lock()
	ctr, ok := f.containers[containerID]
	if !ok {
		f.mu.Unlock()
		return 0, &command.NotFoundError{Ref: containerID, Object: "container"}
	}
	script := f.scripts[ctr.image]
	f.mu.Unlock()

	if script.Hang {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if script.Delay > 0 {
		select {
		case <-time.After(script.Delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if script.WaitErr != nil {
		return 0, script.WaitErr
	}
	return script.ExitCode, nil
}

func (f *FakeEngine) ContainerLogs(ctx context.Context, containerID string, w io.Writer) error {
	f.mu.Lock()
	ctr, ok := f.containers[containerID]
	if !ok {
		f.mu.Unlock()
		return &command.NotFoundError{Ref: containerID, Object: "container"}
	}
	script := f.scripts[ctr.image]
	f.mu.Unlock()

	if script.LogsErr != nil {
		return script.LogsErr
	}
	_, err := io.WriteString(w, script.Logs)
	return err
}

func (f *FakeEngine) ContainerRemove(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[containerID]; !ok {
		return &command.NotFoundError{Ref: containerID, Object: "container"}
	}
	delete(f.containers, containerID)
	f.removed = append(f.removed, containerID)
	return nil
}

// trimRef strips a ":tag" qualifier so "name" and "name:latest" address the
// same image, mirroring the daemon.
func trimRef(ref string) string {
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		return ref[:idx]
	}
	return ref
}
