package cli

import (
	"github.com/spf13/cobra"

	"github.com/autodeployr/engine/pkg/util/console"
)

func newDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the engine can reach a usable container runtime",
		Args:  cobra.NoArgs,
		RunE:  doctorCommand,
	}
	return cmd
}

func doctorCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	console.Infof("Config loaded: prefix=%s data_dir=%s", cfg.TagPrefix, cfg.DataDir)

	client, err := newDockerClient(ctx, cfg)
	if err != nil {
		return err
	}
	info, err := client.VerifyAPIVersion(ctx)
	if err != nil {
		return err
	}
	console.Infof("Container runtime OK: API %s, server %s (%s)", info.APIVersion, info.ServerVersion, info.OSType)

	if _, err := newEnvStore(cfg); err != nil {
		return err
	}
	console.Infof("Env store writable at %s", cfg.EnvStoreDir)

	return nil
}
