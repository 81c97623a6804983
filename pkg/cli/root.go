package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autodeployr/engine/pkg/config"
	"github.com/autodeployr/engine/pkg/docker"
	"github.com/autodeployr/engine/pkg/envstore"
	"github.com/autodeployr/engine/pkg/global"
	"github.com/autodeployr/engine/pkg/image"
	"github.com/autodeployr/engine/pkg/logging"
	"github.com/autodeployr/engine/pkg/util/console"
)

var userFlag string
var configFlag string

func NewRootCommand() (*cobra.Command, error) {
	rootCmd := cobra.Command{
		Use:     "engine",
		Short:   "Build and run tenant functions as containers",
		Version: fmt.Sprintf("%s (built %s)", global.Version, global.BuildTime),
		// This stops errors being printed because we print them in cmd/engine/main.go
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if global.Verbose {
				console.SetLevel(console.DebugLevel)
			}
			cmd.SilenceUsage = true
		},
		SilenceErrors: true,
	}
	setPersistentFlags(&rootCmd)

	rootCmd.AddCommand(
		newBuildCommand(),
		newInvokeCommand(),
		newResolveCommand(),
		newImagesCommand(),
		newRemoveCommand(),
		newSweepCommand(),
		newDoctorCommand(),
	)

	return &rootCmd, nil
}

func setPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to an engine config file (defaults to "+global.ConfigFilename+" in the current directory)")
}

func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&userFlag, "user", "u", "", "Tenant the function belongs to")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFlag)
}

func newDockerClient(ctx context.Context, cfg *config.Config) (*docker.Client, error) {
	var opts []docker.Option
	if cfg.DockerHost != "" {
		opts = append(opts, docker.WithHost(cfg.DockerHost))
	}
	return docker.NewClient(ctx, opts...)
}

func newEnvStore(cfg *config.Config) (envstore.Store, error) {
	return envstore.NewFile(cfg.EnvStoreDir)
}

func imageOptions(cfg *config.Config, store envstore.Store) []image.Option {
	opts := []image.Option{
		image.WithTagPrefix(cfg.TagPrefix),
		image.WithLogger(logging.Sugar("image")),
		image.WithSweepWindow(cfg.BuildSweepWindow.Std()),
	}
	if store != nil {
		opts = append(opts, image.WithEnvStore(store))
	}
	return opts
}
