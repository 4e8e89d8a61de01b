// eportal ui: launch the interactive log viewer.
package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/f9-o/eportal/internal/tui"
	"github.com/f9-o/eportal/pkg/errs"
)

func NewUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Launch the interactive log viewer",
		Example: `  eportal ui
  EPORTAL_NETWORK_AUTO_LOGIN=true eportal ui`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			sink := tui.NewSink(256)
			app := tui.New(tui.Config{
				Context:   cmd.Context(),
				Engine:    rt.Orchestrator(sink),
				Sink:      sink,
				Log:       rt.Log,
				UserID:    rt.Config.Network.UserID,
				PortalURL: rt.Config.PortalURL(),
				AutoLogin: rt.Config.Network.AutoLogin,
				Custom:    rt.Config.CustomIdentity(),
				Record:    rt.Record,
			})

			p := tea.NewProgram(app,
				tea.WithContext(cmd.Context()),
				tea.WithAltScreen(),       // use alternate screen buffer
				tea.WithMouseCellMotion(), // mouse wheel scrolls the log
			)

			if _, err := p.Run(); err != nil && cmd.Context().Err() == nil {
				return errs.Wrap(err, errs.ErrInternal, "cli.ui")
			}
			return nil
		},
	}
	return cmd
}
