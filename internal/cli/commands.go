package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BharatiPatra/fi-dashboard/acquisition"
	"github.com/BharatiPatra/fi-dashboard/backend"
	"github.com/BharatiPatra/fi-dashboard/internal/config"
	"github.com/BharatiPatra/fi-dashboard/internal/logging"
	"github.com/BharatiPatra/fi-dashboard/session"
	"github.com/BharatiPatra/fi-dashboard/session/sealedstore"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "v0.1.0-dev"

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var keyLabel = color.New(color.FgCyan)

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	configFile string
	jsonOutput bool
	logLevel   string

	store  session.Store
	opener acquisition.BrowserOpener
	stdin  io.Reader

	cfg      config.Config
	sessions *session.Context
	client   *backend.Client
}

type Option func(*app)

// WithStore replaces the session store chosen from the configuration.
func WithStore(store session.Store) Option {
	return func(a *app) {
		a.store = store
	}
}

// WithBrowserOpener replaces the platform browser launcher used by login.
func WithBrowserOpener(opener acquisition.BrowserOpener) Option {
	return func(a *app) {
		a.opener = opener
	}
}

// WithInput replaces stdin; a line read from it abandons a login.
func WithInput(r io.Reader) Option {
	return func(a *app) {
		a.stdin = r
	}
}

// NewRootCmd builds the fidash command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{opener: acquisition.OpenBrowser, stdin: os.Stdin}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "fidash [command] [flags]",
		Short: "fidash - your personal finance dashboard in the terminal",
		Long: `fidash logs in to the Fi MCP backend and shows your balances, net worth
and mutual fund investments, or lets you ask the finance agent a question.

Examples:
  # Log in (opens the login page in your browser)
  fidash login

  # Show the dashboard summary
  fidash summary

  # Ask the agent
  fidash ask how much did I spend on credit last month`,
		PersistentPreRunE: a.preRunHandlePersistents,
		SilenceErrors:     true,
		SilenceUsage:      true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().BoolVarP(&a.jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&a.logLevel, "log-level", "", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd(a))
	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newLogoutCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newSummaryCmd(a))
	rootCmd.AddCommand(newNetWorthCmd(a))
	rootCmd.AddCommand(newMutualFundsCmd(a))
	rootCmd.AddCommand(newAskCmd(a))

	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, ErrAlreadyHandled) {
		os.Exit(1)
	}

	if jsonOutput, _ := rootCmd.PersistentFlags().GetBool("json"); jsonOutput {
		printJSON(os.Stdout, map[string]string{"error": err.Error()})
	} else {
		errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// preRunHandlePersistents loads the configuration and opens the session store.
func (a *app) preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.GetLogLevel()
	}
	logging.InitWriter(cmd.ErrOrStderr(), level, true)

	if a.store == nil {
		if a.store, err = openStore(cfg); err != nil {
			return err
		}
	}
	a.sessions = session.NewContext(a.store)

	a.client, err = backend.New(cfg.GetBackendURL(), a.sessions, backend.WithLogger(log.Logger))
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	return nil
}

// openStore picks the sealed store when a session key is configured.
func openStore(cfg config.Config) (session.Store, error) {
	file, err := cfg.GetSessionFile()
	if err != nil {
		return nil, err
	}
	key, err := cfg.GetSessionKey()
	if err != nil {
		return nil, err
	}
	return sealedstore.Open(file, key), nil
}

// notLoggedIn reports a missing session the way every command does.
func (a *app) notLoggedIn(cmd *cobra.Command) error {
	if a.jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]any{"authenticated": false, "error": "not logged in"})
	} else {
		errorLabel.Fprintln(cmd.ErrOrStderr(), "not logged in, run `fidash login`")
	}
	return ErrAlreadyHandled
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fidash",
		Run: func(cmd *cobra.Command, args []string) {
			if a.jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{"version": Version})
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fidash %s\n", Version)
		},
	}
}

// printJSON prints data as indented JSON
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}

func printField(w io.Writer, key string, value any) {
	keyLabel.Fprintf(w, "%-18s", key+":")
	fmt.Fprintf(w, " %v\n", value)
}
