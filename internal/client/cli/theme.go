package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lorewiki/internal/client/ui"
	"lorewiki/internal/client/view"
)

func newThemeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "Show or set the color theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(view.ThemeLight), string(view.ThemeDark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, ui.FormatInfo("theme: "+e.prefs.Theme))
				return nil
			}

			theme := view.ParseTheme(args[0])
			if err := e.saveTheme(theme); err != nil {
				return fmt.Errorf("save theme: %w", err)
			}
			ui.SetTheme(string(theme))
			fmt.Fprintln(out, ui.FormatSuccess("theme: "+string(theme)))
			return nil
		},
	}
}
