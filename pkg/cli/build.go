package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autodeployr/engine/pkg/image"
	"github.com/autodeployr/engine/pkg/util/console"
)

var buildApp string
var buildFunction string
var buildEnv []string
var buildNoCache bool

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <build-path>",
		Short: "Build a function image from a prepared build directory",
		Args:  cobra.ExactArgs(1),
		RunE:  buildCommand,
	}
	addUserFlag(cmd)
	addNoCacheFlag(cmd)
	cmd.Flags().StringVarP(&buildApp, "app", "a", "", "App the function belongs to")
	cmd.Flags().StringVarP(&buildFunction, "function", "f", "", "Function name, defaults to the build directory name")
	cmd.Flags().StringArrayVarP(&buildEnv, "env", "e", []string{}, "Env var to store for invocations, in the form KEY=VALUE")
	return cmd
}

func buildCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := newDockerClient(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := newEnvStore(cfg)
	if err != nil {
		return err
	}
	envVars, err := parseEnvPairs(buildEnv)
	if err != nil {
		return err
	}

	buildPath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	functionName := buildFunction
	if functionName == "" {
		functionName = filepath.Base(buildPath)
	}

	builder := image.NewBuilder(client, imageOptions(cfg, store)...)
	container, err := builder.Build(ctx, image.BuildRequest{
		BuildPath:    buildPath,
		UserID:       userFlag,
		AppName:      buildApp,
		FunctionName: functionName,
		EnvVars:      envVars,
		NoCache:      buildNoCache,
		Output:       os.Stdout,
	})
	if err != nil {
		return err
	}

	console.Infof("\nImage built as %s", container.ImageTag.String())
	return nil
}

func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("env var %q is not in the form KEY=VALUE", pair)
		}
		vars[name] = value
	}
	return vars, nil
}

func addNoCacheFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "Do not use cache when building the image")
}
