package invoke

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autodeployr/engine/pkg/docker/command"
	"github.com/autodeployr/engine/pkg/errors"
	"github.com/autodeployr/engine/pkg/event"
	"github.com/autodeployr/engine/pkg/extract"
	"github.com/autodeployr/engine/pkg/global"
	"github.com/autodeployr/engine/pkg/logging"
	"github.com/autodeployr/engine/pkg/metrics"
)

const (
	DefaultExecTimeout = 90 * time.Second
	DefaultLogsTimeout = 10 * time.Second

	teardownTimeout = 30 * time.Second

	pythonWrapperPath = "/app/wrapper.py"
	javaJarPath       = "/app/function.jar"
	csharpDLLPath     = "/app/function.dll"
	phpEntrypointPath = "/app/function.php"

	// eventEnvVar carries the serialized event for conventions that cannot
	// take it as an argv element.
	eventEnvVar = "FUNCTION_EVENT_JSON"

	// hostGatewayAlias lets bridged Python containers call back into
	// services on the host.
	hostGatewayAlias = "host.docker.internal:host-gateway"

	pythonEventPort = 8080
)

// Launcher runs one function container per invocation and turns whatever
// happened into an HTTP-shaped result. Runtime failures after entry
// validation never surface as errors; they become 500 results so a caller
// always has something to hand back to the client.
type Launcher struct {
	docker      command.Command
	metrics     metrics.Recorder
	log         *zap.SugaredLogger
	execTimeout time.Duration
	logsTimeout time.Duration
	shmSize     int64
}

func NewLauncher(docker command.Command, opts ...Option) *Launcher {
	l := &Launcher{
		docker:      docker,
		metrics:     metrics.Noop{},
		log:         logging.Nop(),
		execTimeout: DefaultExecTimeout,
		logsTimeout: DefaultLogsTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Invoke executes one event against the function image. The returned error
// is non-nil only for invalid input; once a container launch is attempted,
// every outcome is expressed through the result.
func (l *Launcher) Invoke(ctx context.Context, c Container, ev *event.Event, envVars map[string]string, conv Convention) (*extract.Result, error) {
	if c.ImageTag.IsZero() {
		return nil, errors.Validationf("invocation has no function image")
	}
	if ev == nil {
		return nil, errors.Validationf("invocation event is nil")
	}
	payload, err := ev.Serialize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	opts := l.shapeRun(conv, c, string(payload), runEnv(envVars, c.ImageTag.Identity().UserID))
	result := l.run(ctx, opts, c)
	l.metrics.RecordInvocation(c.functionID(), time.Since(start), result.StatusCode < 500)
	return result, nil
}

func (l *Launcher) run(ctx context.Context, opts command.RunOptions, c Container) *extract.Result {
	containerID, err := l.docker.ContainerStart(ctx, opts)
	if err != nil {
		l.log.Errorw("failed to start function container",
			"image", opts.Image,
			"error", err)
		if command.IsNotFoundError(err) {
			return extract.Failure(fmt.Sprintf("Function image %s not found", opts.Image), "")
		}
		return extract.Failure("Failed to start function container: "+err.Error(), "")
	}
	defer l.teardown(containerID)

	waitCtx, cancel := context.WithTimeout(ctx, l.execTimeout)
	defer cancel()
	exitCode, waitErr := l.docker.ContainerWait(waitCtx, containerID)

	logText := l.fetchLogs(containerID)

	if waitErr != nil {
		if waitCtx.Err() == context.DeadlineExceeded {
			l.log.Warnw("function execution timed out",
				"image", opts.Image,
				"timeout", l.execTimeout)
			return extract.Failure(fmt.Sprintf("Function execution timed out after %s", l.execTimeout), logText)
		}
		l.log.Errorw("failed to wait for function container",
			"container", containerID,
			"error", waitErr)
		return extract.Failure("Failed waiting for function container: "+waitErr.Error(), logText)
	}

	result, strategy := extract.ExtractWithStrategy(logText)
	l.log.Debugw("extracted invocation result",
		"function", c.functionID(),
		"strategy", strategy,
		"status", result.StatusCode,
		"exit_code", exitCode)
	return result
}

// teardown removes the container regardless of how the invocation went. It
// runs on a fresh context so a cancelled invocation still gets cleaned up.
func (l *Launcher) teardown(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := l.docker.ContainerRemove(ctx, containerID); err != nil && !command.IsNotFoundError(err) {
		l.log.Warnw("failed to remove function container",
			"container", containerID,
			"error", err)
	}
}

// fetchLogs snapshots whatever the container has written so far. On the
// timeout path the container is still running, so this is a best-effort
// read under its own deadline.
func (l *Launcher) fetchLogs(containerID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), l.logsTimeout)
	defer cancel()
	var buf strings.Builder
	if err := l.docker.ContainerLogs(ctx, containerID, &buf); err != nil {
		l.log.Warnw("failed to fetch container logs",
			"container", containerID,
			"error", err)
	}
	return buf.String()
}

func (l *Launcher) shapeRun(conv Convention, c Container, payload string, env []string) command.RunOptions {
	id := c.ImageTag.Identity()
	opts := command.RunOptions{
		Image: c.ImageTag.String(),
		Name:  "autodeployr-run-" + uuid.NewString(),
		Env:   env,
		Labels: map[string]string{
			global.LabelNamespace + ".user":     id.UserID,
			global.LabelNamespace + ".function": c.functionID(),
		},
		ShmSize: l.shmSize,
	}
	switch conv {
	case Java:
		opts.Args = []string{"java", "-jar", javaJarPath, payload}
		opts.NetworkMode = "bridge"
	case CSharp:
		opts.Args = []string{"dotnet", csharpDLLPath}
		opts.Env = append(opts.Env, eventEnvVar+"="+payload)
		opts.NetworkMode = "host"
	case PHP:
		opts.Args = []string{"php", phpEntrypointPath}
		opts.Env = append(opts.Env, eventEnvVar+"="+payload)
		opts.NetworkMode = "host"
	default:
		opts.Args = []string{"python3", pythonWrapperPath, payload}
		opts.NetworkMode = "bridge"
		opts.ExtraHosts = []string{hostGatewayAlias}
		opts.Ports = []command.Port{{HostPort: 0, ContainerPort: pythonEventPort}}
	}
	return opts
}

// runEnv flattens the stored variables in a stable order and appends the
// tenant identity last so it cannot be overridden.
func runEnv(envVars map[string]string, userID string) []string {
	keys := slices.Sorted(maps.Keys(envVars))
	env := make([]string, 0, len(keys)+2)
	for _, k := range keys {
		env = append(env, k+"="+envVars[k])
	}
	return append(env, "USER_ID="+userID)
}
