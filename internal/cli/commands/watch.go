// eportal watch: keep the device logged in.
package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/internal/keepalive"
	"github.com/f9-o/eportal/pkg/pprint"
)

func NewWatchCmd() *cobra.Command {
	var interval time.Duration
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check the connection periodically and log in again when it drops",
		Example: `  eportal watch
  eportal watch --interval 30s
  eportal watch --once   # single check, exit 1 when offline`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			if interval <= 0 {
				interval = rt.Config.Network.CheckInterval
			}

			orch := rt.Orchestrator(rt.Console())
			engine := keepalive.NewEngine(orch, rt.State, rt.Log, interval, rt.Config.Network.UserID)

			if once {
				ev := engine.Check(cmd.Context())
				if err := printEvent(rt, ev); err != nil {
					return err
				}
				if !ev.Online {
					return errors.New("device is offline")
				}
				return nil
			}

			if !rt.Flags.JSONOutput {
				pprint.Info("checking every %s, press Ctrl+C to stop", engine.Interval())
			}
			done := make(chan struct{})
			go func() {
				defer close(done)
				engine.Run(cmd.Context())
			}()

			for {
				select {
				case ev := <-engine.Events():
					if err := printEvent(rt, ev); err != nil {
						return err
					}
				case <-done:
					return nil
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between checks (defaults to network.check_interval)")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single check and exit")
	return cmd
}

func printEvent(rt *Runtime, ev v1.ConnectionEvent) error {
	if rt.Flags.JSONOutput {
		return printJSON(ev)
	}
	at := ev.Time.Local().Format(time.TimeOnly)
	switch {
	case ev.Online:
		pprint.Success("%s online", at)
	case ev.FailCount >= keepalive.OfflineThreshold:
		pprint.Error("%s offline (%d consecutive failures): %s", at, ev.FailCount, ev.Err)
	default:
		pprint.Warn("%s offline (%d): %s", at, ev.FailCount, ev.Err)
	}
	return nil
}
