package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nativewit/witflo/vault"
)

// NewCmdNotebook creates the `witflo notebook` command tree.
func NewCmdNotebook(defaults *DefaultWitfloOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notebook",
		Aliases: []string{"notebooks"},
		Short:   "Manage notebooks in the active vault",
	}

	cmd.AddCommand(newNotebookCreateCmd(defaults))
	cmd.AddCommand(newNotebookListCmd(defaults))
	cmd.AddCommand(newNotebookRmCmd(defaults))
	cmd.AddCommand(newNotebookArchiveCmd(defaults))

	return cmd
}

func newNotebookCreateCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	var name, description, color, icon string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a notebook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(name) == 0 {
				return fmt.Errorf("witflo: --name is required")
			}

			v := defaults.vaultOptions.Vault

			meta, err := v.Notebooks.Save(vault.Notebook{
				Name:        name,
				VaultID:     v.VaultID(),
				Description: description,
				Color:       color,
				Icon:        icon,
			})
			if err != nil {
				return err
			}

			defaults.Printf("%s\n", meta.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "notebook name (required)")
	cmd.Flags().StringVar(&description, "description", "", "notebook description")
	cmd.Flags().StringVar(&color, "color", "", "display color")
	cmd.Flags().StringVar(&icon, "icon", "", "display icon")

	return cmd
}

func newNotebookListCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notebooks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, row := range defaults.vaultOptions.Vault.Notebooks.List() {
				state := "active"
				if row.IsArchived {
					state = "archived"
				}

				defaults.Printf("%s\t%s\t%d notes\t%s\t%s\n",
					row.ID, row.Name, row.NoteCount, row.ModifiedAt.Format(time.RFC3339), state)
			}

			return nil
		},
	}
}

func newNotebookRmCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return defaults.vaultOptions.Vault.Notebooks.Delete(args[0])
		},
	}
}

func newNotebookArchiveCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	var unarchive bool

	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive (or with --unarchive, unarchive) a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := defaults.vaultOptions.Vault.Notebooks.SetArchived(args[0], !unarchive)
			return err
		},
	}

	cmd.Flags().BoolVar(&unarchive, "unarchive", false, "unarchive instead of archive")

	return cmd
}
