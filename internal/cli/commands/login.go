// eportal login / connect: authenticate against the portal.
package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/internal/core/config"
	"github.com/f9-o/eportal/internal/portal"
	"github.com/f9-o/eportal/pkg/errs"
	"github.com/f9-o/eportal/pkg/netutil"
	"github.com/f9-o/eportal/pkg/pprint"
)

// outcomeJSON is the --json rendering of a login or connect run.
type outcomeJSON struct {
	Op            string `json:"op"`
	Success       bool   `json:"success"`
	AlreadyOnline bool   `json:"already_online"`
	Attempts      int    `json:"attempts"`
	IP            string `json:"ip,omitempty"`
	MAC           string `json:"mac,omitempty"`
	Error         string `json:"error,omitempty"`
}

func NewLoginCmd() *cobra.Command {
	var ip, mac string
	var custom bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the portal, retrying on failure",
		Example: `  eportal login
  eportal login --custom
  eportal login --ip 172.17.20.30 --mac 00:1A:2B:3C:4D:5E`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			override, err := loginOverride(rt.Config, ip, mac, custom)
			if err != nil {
				return err
			}

			orch := rt.Orchestrator(rt.Console())
			started := time.Now()
			out, err := orch.LoginSequence(cmd.Context(), override)
			rt.Record("login", started, out, err)
			if err != nil {
				return err
			}
			return reportOutcome(rt, "login", out)
		},
	}

	cmd.Flags().StringVar(&ip, "ip", "", "IPv4 address to present instead of this host's")
	cmd.Flags().StringVar(&mac, "mac", "", "MAC address to present (required with --ip)")
	cmd.Flags().BoolVar(&custom, "custom", false, "Present custom_ip/custom_mac from the config")
	return cmd
}

func NewConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "connect",
		Short:        "Log in only if the portal says this device is offline",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			orch := rt.Orchestrator(rt.Console())
			started := time.Now()
			out, err := orch.Ensure(cmd.Context())
			rt.Record("connect", started, out, err)
			if err != nil {
				return err
			}
			return reportOutcome(rt, "connect", out)
		},
	}
}

// loginOverride resolves the identity flags into a per-call override. No
// flags means the host identity (nil).
func loginOverride(cfg *config.Config, ip, mac string, custom bool) (*v1.DeviceIdentity, error) {
	if custom {
		if ip != "" || mac != "" {
			return nil, errs.Newf(errs.ErrValidation, "cli.login", "--custom cannot be combined with --ip/--mac")
		}
		id := cfg.CustomIdentity()
		if id == nil {
			return nil, errs.New(errs.ErrIdentity, "cli.login", errors.New("no custom identity configured")).
				WithAdvice("set custom_ip and custom_mac in the [Network] section")
		}
		return id, nil
	}
	if ip == "" && mac == "" {
		return nil, nil
	}
	if ip == "" || mac == "" {
		return nil, errs.New(errs.ErrIdentity, "cli.login", errors.New("--ip and --mac must be given together"))
	}
	if !netutil.IsValidIPv4(ip) {
		return nil, errs.Newf(errs.ErrIdentity, "cli.login", "invalid IPv4 address %q", ip)
	}
	norm, err := netutil.NormalizeMAC(mac)
	if err != nil {
		return nil, errs.New(errs.ErrIdentity, "cli.login", err)
	}
	return &v1.DeviceIdentity{IP: ip, MAC: norm}, nil
}

func reportOutcome(rt *Runtime, op string, out portal.Outcome) error {
	if rt.Flags.JSONOutput {
		view := outcomeJSON{
			Op:            op,
			Success:       out.Success,
			AlreadyOnline: out.AlreadyOnline,
			Attempts:      out.Attempts,
			IP:            out.Identity.IP,
			MAC:           out.Identity.MAC,
		}
		if out.LastErr != nil {
			view.Error = out.LastErr.Error()
		}
		if err := printJSON(view); err != nil {
			return err
		}
	}

	switch {
	case out.AlreadyOnline:
		if !rt.Flags.JSONOutput {
			pprint.Success("already online")
		}
		return nil
	case out.Success:
		if !rt.Flags.JSONOutput {
			pprint.Success("logged in as %s from %s (%s)", rt.Config.Network.UserID, out.Identity.IP, out.Identity.MAC)
		}
		return nil
	}

	if rt.CapturePath != "" && !rt.Flags.JSONOutput {
		pprint.Info("request/response capture: %s", rt.CapturePath)
	}
	if out.LastErr != nil {
		return fmt.Errorf("%s failed after %d attempts: %w", op, out.Attempts, out.LastErr)
	}
	return fmt.Errorf("%s failed after %d attempts", op, out.Attempts)
}
