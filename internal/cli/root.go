// Package cli defines the root Cobra command and global flag/context setup.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/f9-o/eportal/internal/cli/commands"
	"github.com/f9-o/eportal/internal/core/config"
	"github.com/f9-o/eportal/internal/core/logger"
	"github.com/f9-o/eportal/internal/core/state"
	"github.com/f9-o/eportal/pkg/errs"
	"github.com/f9-o/eportal/pkg/pprint"
)

// globalFlags holds values bound to persistent global flags.
type globalFlags struct {
	configFile string
	debug      bool
	verbose    bool
	jsonOutput bool
}

// app is one invocation of the CLI: its flags and the runtime built for the
// selected subcommand.
type app struct {
	flags globalFlags
	rt    *commands.Runtime
}

// noRuntime lists commands that run without config, logger or state.
var noRuntime = map[string]bool{
	"version":    true,
	"completion": true,
	"init":       true,
	"help":       true,
}

// newRootCmd builds the base command for eportal.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "eportal",
		Short:         "eportal: campus captive-portal login from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare `eportal`; the help func prints the banner.
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noRuntime[cmd.Name()] {
				return nil
			}
			rt, err := initRuntime(cmd.Name(), &a.flags)
			if err != nil {
				return err
			}
			a.rt = rt
			cmd.SetContext(commands.NewContext(cmd.Context(), rt))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.flags.configFile, "config", "c", "", "Path to config.ini (defaults to auto-discovery)")
	root.PersistentFlags().BoolVar(&a.flags.debug, "debug", false, "Enable debug-level logging on stderr")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "Print request and response dumps")
	root.PersistentFlags().BoolVar(&a.flags.jsonOutput, "json", false, "Output in machine-readable JSON")

	// Show banner before every help screen
	origHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		pprint.PrintBanner(commands.Version, commands.BuildDate)
		origHelp(cmd, args)
	})

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewLoginCmd(),
		commands.NewConnectCmd(),
		commands.NewStatusCmd(),
		commands.NewWatchCmd(),
		commands.NewHistoryCmd(),
		commands.NewConfigCmd(),
		commands.NewUICmd(),
		commands.NewVersionCmd(),
	)
	return root, a
}

// Run executes the CLI with args and releases the runtime afterwards.
func Run(ctx context.Context, args []string) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if a.rt != nil {
		if cerr := a.rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Execute runs the CLI. Called by main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, os.Args[1:])
	stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	pprint.Error("%s", err)
	if pe := errs.AsPortal(err); pe != nil && pe.Advice != "" {
		fmt.Fprintln(pprint.ErrOut, pprint.StyleMuted.Render("  → "+pe.Advice))
	}
}

// initRuntime loads config, logger, and state before each command runs.
func initRuntime(name string, flags *globalFlags) (*commands.Runtime, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}

	home := config.Home()
	if err := os.MkdirAll(home, 0o750); err != nil {
		return nil, errs.Wrap(err, errs.ErrInternal, "cli.home").WithResource(home)
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(home, "logs", "eportal.log")
	}
	// Human output goes through pprint; slog only reaches the terminal with
	// --debug, and never while the TUI owns it.
	if flags.debug && name != "ui" {
		logger.SetConsole(os.Stderr)
	} else {
		logger.SetConsole(nil)
	}
	log, err := logger.Init(cfg.Log.Level, cfg.Log.Format, logFile, home, flags.debug)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrInternal, "cli.logger").
			WithResource(logFile).
			WithAdvice("point log.file in the [Log] section at a writable path")
	}
	log.Debug("config loaded", "path", cfg.Path())

	rt := &commands.Runtime{
		Config: cfg,
		Log:    log,
		Flags: commands.GlobalFlags{
			Debug:      flags.debug,
			Verbose:    flags.verbose,
			JSONOutput: flags.jsonOutput,
		},
	}

	if cfg.Debug.EnablePacketCapture {
		path, err := log.EnableCapture(filepath.Join(home, "logs"))
		if err != nil {
			log.Warn("packet capture disabled", "err", err)
		} else {
			rt.CapturePath = path
			log.Info("packet capture enabled", "path", path)
		}
	}

	db, err := state.Open(filepath.Join(home, state.FileName))
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	rt.State = db
	return rt, nil
}
