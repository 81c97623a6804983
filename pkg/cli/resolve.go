package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autodeployr/engine/pkg/image"
)

var resolveApp string

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <function>",
		Short: "Show which image an invocation of the function would run",
		Args:  cobra.ExactArgs(1),
		RunE:  resolveCommand,
	}
	addUserFlag(cmd)
	cmd.Flags().StringVarP(&resolveApp, "app", "a", "", "App the function belongs to")
	return cmd
}

func resolveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := newDockerClient(ctx, cfg)
	if err != nil {
		return err
	}

	resolver := image.NewResolver(client, imageOptions(cfg, nil)...)
	container, strategy, err := resolver.ResolveWithStrategy(ctx, userFlag, resolveApp, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s (via %s)\n", container.ImageTag.String(), strategy)
	return nil
}
