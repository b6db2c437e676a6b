package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nativewit/witflo/clierror"
	"github.com/nativewit/witflo/genericclioptions"
	"github.com/nativewit/witflo/vault"
)

// noteAddOptions creates a new note in the active vault.
type noteAddOptions struct {
	*genericclioptions.StdioOptions

	defaults   *DefaultWitfloOptions
	title      string
	content    string
	notebookID string
	tags       []string
}

var _ genericclioptions.CmdOptions = &noteAddOptions{}

func (*noteAddOptions) Complete() error { return nil }

func (o *noteAddOptions) Validate() error {
	if len(o.title) == 0 {
		return fmt.Errorf("witflo: --title is required")
	}

	return nil
}

func (o *noteAddOptions) Run(context.Context, ...string) error {
	now := time.Now().UTC()

	note := vault.Note{
		ID:         vault.NewNoteID(),
		Title:      o.title,
		Content:    o.content,
		NotebookID: o.notebookID,
		Tags:       o.tags,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	meta, err := o.defaults.vaultOptions.Vault.SaveNote(note)
	if err != nil {
		return err
	}

	o.Printf("%s\n", meta.ID)

	return nil
}

// NewCmdNote creates the `witflo note` command tree.
func NewCmdNote(defaults *DefaultWitfloOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "note",
		Aliases: []string{"notes"},
		Short:   "Manage notes in the active vault",
	}

	cmd.AddCommand(newNoteAddCmd(defaults))
	cmd.AddCommand(newNoteShowCmd(defaults))
	cmd.AddCommand(newNoteEditCmd(defaults))
	cmd.AddCommand(newNoteListCmd(defaults))
	cmd.AddCommand(newNoteRmCmd(defaults))
	cmd.AddCommand(newNoteTrashCmd(defaults))
	cmd.AddCommand(newNoteRestoreCmd(defaults))
	cmd.AddCommand(newNotePinCmd(defaults))
	cmd.AddCommand(newNoteArchiveCmd(defaults))

	return cmd
}

func newNoteAddCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	o := &noteAddOptions{StdioOptions: defaults.StdioOptions, defaults: defaults}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.title, "title", "", "note title (required)")
	cmd.Flags().StringVar(&o.content, "content", "", "note body")
	cmd.Flags().StringVar(&o.notebookID, "notebook", "", "notebook id to file the note under")
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "tag (repeatable)")

	return cmd
}

func newNoteShowCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := defaults.vaultOptions.Vault.Notes.Load(args[0])
			if err != nil {
				return err
			}

			defaults.Printf("# %s\n\n%s\n", note.Title, note.Content)

			return nil
		},
	}
}

func newNoteEditCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a note's title and/or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := defaults.vaultOptions.Vault.Notes.Load(args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("title") {
				note.Title = title
			}

			if cmd.Flags().Changed("content") {
				note.Content = content
			}

			_, err = defaults.vaultOptions.Vault.SaveNote(note)

			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new content")

	return cmd
}

func newNoteListCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	var (
		notebookID string
		tag        string
		trashed    bool
		archived   bool
		pinned     bool
		query      string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			notes := defaults.vaultOptions.Vault.Notes

			var rows []vault.NoteMetadata

			switch {
			case len(query) > 0:
				rows = notes.SearchByTitle(query)
			case len(tag) > 0:
				rows = notes.ListByTag(tag)
			case len(notebookID) > 0:
				rows = notes.ListByNotebook(notebookID)
			case trashed:
				rows = notes.ListTrashed()
			case archived:
				rows = notes.ListArchived()
			case pinned:
				rows = notes.ListPinned()
			default:
				rows = notes.ListActive()
			}

			for _, row := range rows {
				flags := noteFlagString(row)
				defaults.Printf("%s\t%s\t%s\t%s\n", row.ID, row.Title, row.ModifiedAt.Format(time.RFC3339), flags)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&notebookID, "notebook", "", "filter by notebook id")
	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag")
	cmd.Flags().StringVar(&query, "search", "", "filter by title substring")
	cmd.Flags().BoolVar(&trashed, "trashed", false, "list trashed notes instead of active ones")
	cmd.Flags().BoolVar(&archived, "archived", false, "list archived notes instead of active ones")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "list pinned notes instead of active ones")

	return cmd
}

func noteFlagString(row vault.NoteMetadata) string {
	var flags []string

	if row.IsPinned {
		flags = append(flags, "pinned")
	}

	if row.IsArchived {
		flags = append(flags, "archived")
	}

	if row.IsTrashed {
		flags = append(flags, "trashed")
	}

	return strings.Join(flags, ",")
}

func newNoteRmCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Permanently delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return defaults.vaultOptions.Vault.DeleteNote(args[0])
		},
	}
}

func newNoteTrashCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trash <id>",
		Short: "Move a note to trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := defaults.vaultOptions.Vault.TrashNote(args[0])
			return err
		},
	}
}

func newNoteRestoreCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a trashed note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := defaults.vaultOptions.Vault.RestoreNote(args[0])
			return err
		},
	}
}

func newNotePinCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	var unpin bool

	cmd := &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin (or with --unpin, unpin) a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := defaults.vaultOptions.Vault.Notes.SetPinned(args[0], !unpin)
			return err
		},
	}

	cmd.Flags().BoolVar(&unpin, "unpin", false, "unpin instead of pin")

	return cmd
}

func newNoteArchiveCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	var unarchive bool

	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive (or with --unarchive, unarchive) a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := defaults.vaultOptions.Vault.Notes.SetArchived(args[0], !unarchive)
			return err
		},
	}

	cmd.Flags().BoolVar(&unarchive, "unarchive", false, "unarchive instead of archive")

	return cmd
}
