package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/TylerBrock/colorjson"
	"github.com/spf13/cobra"

	"github.com/autodeployr/engine/pkg/event"
	"github.com/autodeployr/engine/pkg/extract"
	"github.com/autodeployr/engine/pkg/image"
	"github.com/autodeployr/engine/pkg/invoke"
	"github.com/autodeployr/engine/pkg/logging"
	"github.com/autodeployr/engine/pkg/metrics"
	"github.com/autodeployr/engine/pkg/util/console"
)

var invokeApp string
var invokeData string
var invokeDataFile string
var invokeLanguage string
var invokeOutPath string

func newInvokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke <function>",
		Short: "Invoke a deployed function with an event",
		Long: `Invoke a deployed function with an event.

The tenant comes from --user when given; otherwise it is resolved from the
event payload itself.`,
		Args: cobra.ExactArgs(1),
		RunE: invokeCommand,
	}
	addUserFlag(cmd)
	cmd.Flags().StringVarP(&invokeApp, "app", "a", "", "App the function belongs to")
	cmd.Flags().StringVarP(&invokeData, "data", "d", "", "Event JSON")
	cmd.Flags().StringVar(&invokeDataFile, "data-file", "", "Read the event JSON from a file")
	cmd.Flags().StringVarP(&invokeLanguage, "language", "l", "", "Function language: python, java, csharp or php (sniffed from the image when omitted)")
	cmd.Flags().StringVarP(&invokeOutPath, "output", "o", "", "Write the response JSON to a file instead of stdout")
	return cmd
}

func invokeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	payload, err := eventPayload()
	if err != nil {
		return err
	}
	ev, err := event.Parse(payload)
	if err != nil {
		return err
	}

	userID := userFlag
	if userID == "" {
		ids := event.IdentityResolver{
			AllowFallback: cfg.AllowFallbackIdentity,
			FallbackID:    cfg.FallbackIdentity,
		}
		userID, err = ids.Resolve(ctx, ev)
		if err != nil {
			return err
		}
	}

	client, err := newDockerClient(ctx, cfg)
	if err != nil {
		return err
	}

	resolver := image.NewResolver(client, imageOptions(cfg, nil)...)
	container, err := resolver.Resolve(ctx, userID, invokeApp, args[0])
	if err != nil {
		return err
	}
	console.Debugf("resolved function %s to image %s", args[0], container.ImageTag.String())

	store, err := newEnvStore(cfg)
	if err != nil {
		return err
	}
	envVars, err := store.Get(ctx, container.ImageTag.Identity().UserID)
	if err != nil {
		return err
	}

	shmBytes, err := cfg.ShmSizeBytes()
	if err != nil {
		return err
	}
	launcher := invoke.NewLauncher(client,
		invoke.WithExecTimeout(cfg.ExecutionTimeout.Std()),
		invoke.WithLogsTimeout(cfg.LogsTimeout.Std()),
		invoke.WithShmSize(shmBytes),
		invoke.WithMetrics(metrics.LogRecorder{Log: logging.Sugar("metrics")}),
		invoke.WithLogger(logging.Sugar("invoke")),
	)

	conv := invoke.ResolveConvention(invokeLanguage, container.ImageTag)
	result, err := launcher.Invoke(ctx, container, ev, envVars, conv)
	if err != nil {
		return err
	}
	return writeResult(result)
}

func eventPayload() ([]byte, error) {
	if invokeData != "" && invokeDataFile != "" {
		return nil, fmt.Errorf("--data and --data-file are mutually exclusive")
	}
	if invokeDataFile != "" {
		return os.ReadFile(invokeDataFile)
	}
	if invokeData != "" {
		return []byte(invokeData), nil
	}
	return []byte("{}"), nil
}

func writeResult(result *extract.Result) error {
	if invokeOutPath != "" {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(invokeOutPath, append(out, '\n'), 0o644)
	}

	if console.IsTTY(os.Stdout) {
		var obj map[string]interface{}
		out, err := json.Marshal(result)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(out, &obj); err != nil {
			return err
		}
		f := colorjson.NewFormatter()
		f.Indent = 2
		s, _ := f.Marshal(obj)
		fmt.Println(string(s))
		return nil
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
