// eportal config: show the effective configuration.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/f9-o/eportal/pkg/pprint"
)

func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "config",
		Short:        "Print the effective configuration with secrets masked",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			settings := rt.Config.Redacted()

			if rt.Flags.JSONOutput {
				flat := make(map[string]string, len(settings))
				for _, s := range settings {
					flat[s.Key] = s.Value
				}
				return printJSON(map[string]any{"file": rt.Config.Path(), "settings": flat})
			}

			file := rt.Config.Path()
			if file == "" {
				file = "(defaults and environment only)"
			}
			pprint.KV("Config file", file)

			table := pprint.NewTable("KEY", "VALUE")
			for _, s := range settings {
				table.AddRow(s.Key, s.Value)
			}
			table.Render()
			return nil
		},
	}
}
