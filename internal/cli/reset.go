package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/printguard/pkg/monitor"
)

var resetCmd = &cobra.Command{
	Use:   "reset <address>",
	Short: "Forget sent alerts for a printer",
	Long: `Clear a printer's offline flag and toner cooldowns so the next check can
alert again. With --supply only that supply's cooldown is cleared.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().StringP("supply", "s", "", "Only clear the cooldown of this supply")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	address := args[0]
	supplyName, _ := cmd.Flags().GetString("supply")

	store, err := initStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	ctx := cmdContext(cmd)
	state, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load alert state: %w", err)
	}
	if err := monitor.ResetDevice(state, address, supplyName); err != nil {
		return err
	}
	if err := store.Save(ctx, state); err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}

	if supplyName != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared toner alert for %q on %s\n", supplyName, address)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared alert memory for %s\n", address)
	}
	return nil
}
