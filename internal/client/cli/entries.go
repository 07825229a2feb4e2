package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lorewiki/internal/client/ui"
	"lorewiki/internal/client/view"
	"lorewiki/internal/model"
)

func newListCmd(e *env) *cobra.Command {
	var typeFilter, search string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List lore entries",
		Long: `List lore entries in a table.

Examples:
  lore list
  lore list --type npc
  lore list --search dragon`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := e.client.List(cmd.Context())
			if err != nil {
				return err
			}
			total := len(entries)
			entries = view.Filter(entries, search, typeFilter)

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, ui.FormatWarning("No entries found"))
				return nil
			}

			table := ui.NewTable([]ui.TableColumn{
				{Header: "Title", Max: 32},
				{Header: "Type", Max: 16},
				{Header: "Tags", Max: 30},
				{Header: "Media", Align: "right"},
				{Header: "Updated"},
				{Header: "ID"},
			})
			for _, en := range entries {
				table.AddRow([]string{
					en.Title,
					en.Type,
					strings.Join(view.TagPreview(en.Tags), ", "),
					strconv.Itoa(len(en.Media)),
					view.FormatUpdated(en.UpdatedAt, time.Local),
					en.ID,
				})
			}
			fmt.Fprint(out, table.Render())
			fmt.Fprintln(out, ui.FormatMuted(fmt.Sprintf("%d of %d entries", len(entries), total)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeFilter, "type", "t", "", "only entries of this type")
	cmd.Flags().StringVar(&search, "search", "", "only entries containing this text")
	return cmd
}

func newAddCmd(e *env) *cobra.Command {
	var f view.Form
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a lore entry",
		Long: `Create a lore entry. A blank title becomes "Untitled".

Examples:
  lore add --title Smaug --type npc --tags "dragon, boss" --body "Sleeps on the gold."`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := e.client.Create(cmd.Context(), f.Input())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess(fmt.Sprintf("Created %q (%s)", created.Title, created.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Title, "title", "", "entry title")
	cmd.Flags().StringVar(&f.Type, "type", "", "entry type, e.g. npc or location")
	cmd.Flags().StringVar(&f.Tags, "tags", "", "comma separated tags")
	cmd.Flags().StringVar(&f.Body, "body", "", "entry text")
	return cmd
}

func newEditCmd(e *env) *cobra.Command {
	var title, typ, tags, body string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a lore entry",
		Long: `Change fields of a lore entry. Only the flags given are sent; the rest
of the entry is left as it is. Pass --tags "" to remove every tag.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.EntryPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("type") {
				patch.Type = &typ
			}
			if flags.Changed("tags") {
				parsed := view.ParseTags(tags)
				patch.Tags = &parsed
			}
			if flags.Changed("body") {
				patch.Body = &body
			}
			if patch.Empty() {
				return errors.New("nothing to change: pass at least one of --title, --type, --tags, --body")
			}

			updated, err := e.client.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess(fmt.Sprintf("Updated %q", updated.Title)))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&typ, "type", "", "new type")
	cmd.Flags().StringVar(&tags, "tags", "", "new comma separated tags")
	cmd.Flags().StringVar(&body, "body", "", "new text")
	return cmd
}

func newRmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a lore entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Deleted "+args[0]))
			return nil
		},
	}
}
