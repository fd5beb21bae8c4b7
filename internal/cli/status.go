package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored alert state of every printer",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "Print the raw state as JSON")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := initStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	state, err := store.Load(cmdContext(cmd))
	if err != nil {
		logger.Warn("alert state unreadable", "error", err)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	if len(state) == 0 {
		fmt.Fprintln(out, "No printers recorded yet.")
		return nil
	}

	addresses := make([]string, 0, len(state))
	for addr := range state {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ADDRESS\tNAME\tLAST SEEN\tOFFLINE ALERTED\tTONER ALERTS\n")
	for _, addr := range addresses {
		rec := state[addr]

		supplies := make([]string, 0, len(rec.TonerAlerted))
		for name, day := range rec.TonerAlerted {
			supplies = append(supplies, fmt.Sprintf("%s (%s)", name, day))
		}
		sort.Strings(supplies)
		toner := "-"
		if len(supplies) > 0 {
			toner = strings.Join(supplies, ", ")
		}

		name := rec.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", addr, name, rec.LastSeen, rec.OfflineAlerted, toner)
	}
	return w.Flush()
}
