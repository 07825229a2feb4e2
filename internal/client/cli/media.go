package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lorewiki/internal/client/app"
	"lorewiki/internal/client/ui"
	"lorewiki/internal/client/view"
)

func newUploadCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <id> <file>",
		Short: "Upload an image or audio file and attach it to an entry",
		Long: `Upload an image (png, jpeg, webp) or audio file (mp3, wav, m4a, ogg)
and attach it to the entry with the given id.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, path := args[0], args[1]
			snap, err := app.NewSession(e.client).UploadFile(cmd.Context(), id, path)
			if err != nil {
				return err
			}

			msg := "Uploaded " + path
			st := view.NewState(view.ThemeDark)
			snap.ApplyTo(st)
			if en, ok := st.Selected(); ok && len(en.Media) > 0 {
				last := en.Media[len(en.Media)-1]
				msg = fmt.Sprintf("Attached %s to %q (%s)", last.Filename, en.Title, last.URL)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess(msg))
			return nil
		},
	}
}

func newDetachCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <id> <filename>",
		Short: "Remove an attachment from an entry",
		Long: `Remove every attachment with the given stored filename from the entry.
The uploaded file itself stays on the server.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			en, err := e.client.DetachMedia(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess(fmt.Sprintf("Detached %s from %q", args[1], en.Title)))
			return nil
		},
	}
}
