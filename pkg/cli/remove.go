package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autodeployr/engine/pkg/image"
	"github.com/autodeployr/engine/pkg/util/console"
)

var removeFunction string

func newRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove",
		Short:   "Remove function images",
		Long:    "Remove function images, either every image of one function (--function) or everything a tenant owns (--user).",
		Args:    cobra.NoArgs,
		RunE:    removeCommand,
		Aliases: []string{"rm"},
	}
	addUserFlag(cmd)
	cmd.Flags().StringVarP(&removeFunction, "function", "f", "", "Remove every image of this function")
	return cmd
}

func removeCommand(cmd *cobra.Command, args []string) error {
	if (removeFunction == "") == (userFlag == "") {
		return fmt.Errorf("exactly one of --function or --user must be given")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := newDockerClient(ctx, cfg)
	if err != nil {
		return err
	}
	reclaimer := image.NewReclaimer(client, imageOptions(cfg, nil)...)

	var removed int
	if removeFunction != "" {
		removed, err = reclaimer.RemoveFunctionImages(ctx, removeFunction)
	} else {
		removed, err = reclaimer.RemoveTenantImages(ctx, userFlag)
	}
	if err != nil {
		return err
	}

	console.Infof("Removed %d image(s)", removed)
	return nil
}
