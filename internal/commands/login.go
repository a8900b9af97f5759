package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Pair this device or resume the stored session",
		Long: `Connects to WhatsApp with the stored session. When no session exists a QR
code is printed; scan it from WhatsApp > Linked devices to pair.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	client, err := connect(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeClient(client)

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\nSession stored in %s\n", client.SelfID(), cfg.SessionDB)
	return nil
}
