package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/printguard/pkg/metrics"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every configured printer once and send due alerts",
	Long: `Probe each printer in the inventory, update the stored alert memory and
deliver any offline or toner order alerts that are due.`,
	Example: `  printguard check --email purchasing@example.com --cc it@example.com
  printguard check -e purchasing@example.com --printer 192.168.0.102`,
	RunE:    runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addRecipientFlags(checkCmd)
	checkCmd.Flags().StringArrayP("printer", "p", nil, "Only check this inventory address (repeatable)")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRecipientFlags(cmd, cfg)
	if err := cfg.Validate(true); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	inv, err := cfg.BuildInventory()
	if err != nil {
		return err
	}
	if only, _ := cmd.Flags().GetStringArray("printer"); len(only) > 0 {
		if inv, err = inv.Select(only...); err != nil {
			return err
		}
	}

	recorder := metrics.NewRecorder()
	mon, store, err := initMonitor(cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := mon.Run(ctx, inv)

	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("write metrics textfile", "error", err)
		}
	}

	if summary != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Checked %d printers: %d reachable, %d alerts raised, %d delivery failures\n",
			len(summary.Devices), summary.Reachable(), summary.Alerts, summary.DeliveryFailures)
	}
	return runErr
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
