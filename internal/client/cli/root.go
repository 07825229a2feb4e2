// Package cli is the lore command line: one cobra command per server
// operation plus the interactive browser.
package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lorewiki/internal/client/api"
	"lorewiki/internal/client/app"
	"lorewiki/internal/client/prefs"
	"lorewiki/internal/client/tui"
	"lorewiki/internal/client/ui"
	"lorewiki/internal/client/view"
)

// EnvServer overrides the server URL from the preferences file.
const EnvServer = "LORE_SERVER"

// env is the state shared by every command of one invocation.
type env struct {
	server    string
	prefsPath string
	verbose   bool

	prefs  prefs.Prefs
	client *api.Client
	log    zerolog.Logger
}

// NewRootCmd builds the lore command tree. Without a sub-command it opens
// the interactive browser.
func NewRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:   "lore",
		Short: "Browse and edit a lore wiki from the terminal",
		Long: ui.StyleTitle.Render("lore") + " - terminal client for the lore wiki server.\n\n" +
			"Run it without a command to open the interactive browser. The server URL\n" +
			"comes from --server, then $" + EnvServer + ", then the preferences file.",
		SilenceUsage:      true,
		PersistentPreRunE: e.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.runTUI(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&e.server, "server", "s", "", "server URL")
	root.PersistentFlags().StringVar(&e.prefsPath, "prefs", "", "preferences file (default <config dir>/lorewiki/prefs.yaml)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newListCmd(e),
		newAddCmd(e),
		newEditCmd(e),
		newRmCmd(e),
		newUploadCmd(e),
		newDetachCmd(e),
		newThemeCmd(e),
		newTUICmd(e),
	)
	return root
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (e *env) setup(cmd *cobra.Command, _ []string) error {
	level := zerolog.WarnLevel
	if e.verbose {
		level = zerolog.DebugLevel
	}
	e.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(level).With().Timestamp().Logger()

	if e.prefsPath == "" {
		p, err := prefs.DefaultPath()
		if err != nil {
			return err
		}
		e.prefsPath = p
	}
	p, err := prefs.Load(e.prefsPath)
	if err != nil {
		e.log.Warn().Err(err).Msg("using default preferences")
	}
	e.prefs = p
	ui.SetTheme(p.Theme)

	e.client = api.New(e.serverURL(), nil)
	e.log.Debug().Str("server", e.client.BaseURL()).Str("prefs", e.prefsPath).Msg("client ready")
	return nil
}

func (e *env) serverURL() string {
	if e.server != "" {
		return e.server
	}
	if s := os.Getenv(EnvServer); s != "" {
		return s
	}
	return e.prefs.Server
}

func (e *env) saveTheme(theme view.Theme) error {
	p := e.prefs
	p.Theme = string(theme)
	return prefs.Save(e.prefsPath, p)
}

func (e *env) runTUI(cmd *cobra.Command) error {
	ctx := cmd.Context()
	state := view.NewState(view.ParseTheme(e.prefs.Theme))
	m := tui.New(ctx, app.NewSession(e.client), state, tui.Config{SaveTheme: e.saveTheme})
	return tui.Run(ctx, m)
}

func newTUICmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.runTUI(cmd)
		},
	}
}
