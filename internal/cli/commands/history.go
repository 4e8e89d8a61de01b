// eportal history: show past login and connect runs.
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/f9-o/eportal/pkg/pprint"
)

func NewHistoryCmd() *cobra.Command {
	var limit, keep int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent login attempts",
		Example: `  eportal history
  eportal history -n 50 --json
  eportal history --prune 100`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			if keep >= 0 {
				n, err := rt.State.PruneLoginRecords(keep)
				if err != nil {
					return err
				}
				if !rt.Flags.JSONOutput {
					pprint.Success("removed %d record(s), kept the newest %d", n, keep)
				}
				return nil
			}

			records, err := rt.State.ListLoginRecords(limit)
			if err != nil {
				return err
			}
			if rt.Flags.JSONOutput {
				return printJSON(records)
			}
			if len(records) == 0 {
				pprint.Info("no login history yet")
				return nil
			}

			table := pprint.NewTable("TIME", "OP", "RESULT", "IP", "MAC", "DURATION", "ERROR")
			for _, r := range records {
				table.AddRow(
					r.StartedAt.Local().Format(time.DateTime),
					r.Op,
					r.Result,
					r.IP,
					r.MAC,
					fmt.Sprintf("%dms", r.DurationMS),
					truncate(r.Error, 48),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show (0 for all)")
	cmd.Flags().IntVar(&keep, "prune", -1, "Delete all but the newest N records")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
