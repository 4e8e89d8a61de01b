// eportal init: write a config.ini with the portal account.
package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/f9-o/eportal/internal/core/config"
	"github.com/f9-o/eportal/pkg/pprint"
)

func NewInitCmd() *cobra.Command {
	var targetPath, userID string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config.ini with your portal account",
		Example: `  eportal init
  eportal init --user 20231234567
  eportal init --path ./config.ini --force`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetPath == "" {
				targetPath = filepath.Join(config.Home(), config.FileName)
			}

			p := newPrompter(cmd.InOrStdin())
			if userID == "" {
				var err error
				if userID, err = p.line("User ID: "); err != nil {
					return fmt.Errorf("read user id: %w", err)
				}
			}
			password, err := p.secret("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			if err := config.WriteTemplate(targetPath, userID, password, force); err != nil {
				return err
			}

			pprint.Success("Created %s", targetPath)
			pprint.Info("Run 'eportal login' to log in, or 'eportal ui' for the log viewer")
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Config file to write (defaults to ~/.eportal/config.ini)")
	cmd.Flags().StringVar(&userID, "user", "", "Portal user id (prompted when omitted)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// prompter reads answers from stdin, hiding the password on a terminal.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
}

func newPrompter(in io.Reader) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in)}
}

func (p *prompter) line(prompt string) (string, error) {
	fmt.Fprint(pprint.ErrOut, prompt)
	s, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) secret(prompt string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(prompt)
	}
	fmt.Fprint(pprint.ErrOut, prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(pprint.ErrOut)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
