package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var phones []string

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Export groups and make the configured numbers admins of the matching ones",
		Long: `Runs the export and then, for every configured phone number and every group
matching the keywords, adds the number when it is not a member and promotes
it to admin. One result per (phone, group) pairing is written to
whatsapp_add_participants_results_<date>.csv.`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	runCmd.Flags().StringSliceVarP(&phones, "phone", "p", nil, "Phone number to add, digits only (repeatable; overrides phone_numbers)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the reports (overrides output_dir)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(phones) > 0 {
		cfg.PhoneNumbers = phones
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := cfg.RequirePhones(); err != nil {
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	client, err := connect(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeClient(client)

	runner, err := newRunner(cfg, client, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	c, err := runner.Run(ctx, cfg.PhoneNumbers)
	if err != nil {
		return err
	}
	logger.Info("run finished", zap.Int("filtered", len(c.Filtered)), zap.Int("results", len(c.Results)))
	return nil
}
