// eportal status: probe the portal and show the last known state.
package commands

import (
	"time"

	"github.com/spf13/cobra"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/pprint"
)

type statusJSON struct {
	Portal     string              `json:"portal"`
	User       string              `json:"user"`
	State      v1.ProbeState       `json:"state"`
	Message    string              `json:"message,omitempty"`
	Error      string              `json:"error,omitempty"`
	Identity   v1.DeviceIdentity   `json:"identity"`
	LastLogin  *v1.LoginRecord     `json:"last_login,omitempty"`
	LastCheck  *v1.ConnectionEvent `json:"last_check,omitempty"`
	LastOnline *v1.DeviceIdentity  `json:"last_identity,omitempty"`
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "status",
		Short:        "Ask the portal whether this device is online",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			orch := rt.Orchestrator(nil)

			var spin *pprint.Spinner
			if !rt.Flags.JSONOutput && interactive() {
				spin = pprint.NewSpinner("probing " + rt.Config.PortalURL())
				spin.Start()
			}
			res := orch.Probe(cmd.Context())
			if spin != nil {
				spin.Stop(res.State != v1.ProbeFailed)
			}

			view := statusJSON{
				Portal:   rt.Config.PortalURL(),
				User:     rt.Config.Network.UserID,
				State:    res.State,
				Message:  res.Message,
				Identity: orch.Identity(nil),
			}
			if res.Err != nil {
				view.Error = res.Err.Error()
			}
			// History is informational; a read failure only loses these lines.
			var err error
			if view.LastLogin, err = rt.State.LastLogin(); err != nil {
				rt.Log.Warn("read last login", "err", err)
			}
			if view.LastCheck, err = rt.State.LastConnectionEvent(); err != nil {
				rt.Log.Warn("read last check", "err", err)
			}
			if view.LastOnline, err = rt.State.LastIdentity(); err != nil {
				rt.Log.Warn("read last identity", "err", err)
			}

			if rt.Flags.JSONOutput {
				return printJSON(view)
			}
			printStatus(view)
			return nil
		},
	}
}

func printStatus(s statusJSON) {
	pprint.Header("portal status")
	pprint.KV("Portal", s.Portal)
	pprint.KV("User", orNone(s.User))
	switch s.State {
	case v1.ProbeOnline:
		pprint.KV("State", pprint.StyleSuccess.Render("online"))
	case v1.ProbeNeedsLogin:
		pprint.KV("State", pprint.StyleWarning.Render("needs login"))
	default:
		pprint.KV("State", pprint.StyleError.Render("unknown"))
	}
	if s.Message != "" {
		pprint.KV("Message", s.Message)
	}
	if s.Error != "" {
		pprint.KV("Error", s.Error)
	}
	pprint.KV("Identity", s.Identity.IP+" / "+s.Identity.MAC)
	if s.LastOnline != nil {
		pprint.KV("Last identity", s.LastOnline.IP+" / "+s.LastOnline.MAC)
	}
	if s.LastLogin != nil {
		pprint.KV("Last login", s.LastLogin.CompletedAt.Local().Format(time.DateTime)+"  "+s.LastLogin.Op+"  "+s.LastLogin.Result)
	}
	if s.LastCheck != nil {
		label := "offline"
		if s.LastCheck.Online {
			label = "online"
		}
		pprint.KV("Last check", s.LastCheck.Time.Local().Format(time.DateTime)+"  "+label)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
