package cli

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nativewit/witflo/clierror"
	"github.com/nativewit/witflo/genericclioptions"
	"github.com/nativewit/witflo/syncop"
	"github.com/nativewit/witflo/vault"
	"github.com/nativewit/witflo/watcher"
)

// vaultCreateOptions creates a new vault within the active workspace.
type vaultCreateOptions struct {
	*genericclioptions.StdioOptions

	defaults *DefaultWitfloOptions
	sync     bool
}

var _ genericclioptions.CmdOptions = &vaultCreateOptions{}

func (*vaultCreateOptions) Complete() error { return nil }

func (*vaultCreateOptions) Validate() error { return nil }

func (o *vaultCreateOptions) Run(context.Context, ...string) error {
	ws := o.defaults.workspaceOptions.Workspace

	vaultID := uuid.NewString()

	vaultKey, err := ws.AddVault(vaultID, o.sync)
	if err != nil {
		return err
	}
	defer vaultKey.Dispose()

	v, err := vault.Create(vaultRoot(ws.Root, vaultID), vaultID, vaultKey)
	if err != nil {
		return err
	}
	v.Close()

	o.Infof("witflo: created vault %s\n", vaultID)

	return nil
}

// NewCmdVault creates the `witflo vault` command tree.
func NewCmdVault(defaults *DefaultWitfloOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage vaults within the active workspace",
	}

	cmd.AddCommand(newVaultCreateCmd(defaults))
	cmd.AddCommand(newVaultListCmd(defaults))
	cmd.AddCommand(newVaultVacuumCmd(defaults))
	cmd.AddCommand(newVaultWatchCmd(defaults))

	return cmd
}

func newVaultCreateCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	o := &vaultCreateOptions{StdioOptions: defaults.StdioOptions, defaults: defaults}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new vault",
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().BoolVar(&o.sync, "sync", false, "mark the vault eligible for sync")

	return cmd
}

func newVaultListCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the workspace's vaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := defaults.workspaceOptions.Workspace.ListVaults()
			if err != nil {
				return err
			}

			for _, info := range infos {
				sync := "no-sync"
				if info.SyncEnabled {
					sync = "sync"
				}

				defaults.Printf("%s\t%s\t%s\n", info.VaultID, info.CreatedAt.Format(time.RFC3339), sync)
			}

			return nil
		},
	}
}

// newVaultVacuumCmd reports how many sync operations are queued in the
// active vault's pending queue. It deletes nothing: pending entries are not
// pruned (the cursor is not consulted), and object-store blobs are neither
// scanned nor removed.
func newVaultVacuumCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Report the number of queued pending-sync operations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := defaults.vaultOptions.Vault

			pending, err := syncop.NewPendingQueue(v.Root()).List()
			if err != nil {
				return err
			}

			defaults.Printf("%d operation(s) queued for push\n", len(pending))

			return nil
		},
	}
}

// newVaultWatchCmd runs the filesystem watcher against the active vault
// until interrupted, printing each detected external change.
func newVaultWatchCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the active vault for external file changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := defaults.vaultOptions.Vault

			logger := zerolog.New(defaults.ErrOut).With().Timestamp().Str("vault", v.VaultID()).Logger()

			w, err := watcher.New(v.Root(), v.Notes, v.Notebooks, logger)
			if err != nil {
				return err
			}
			defer w.Close()

			w.Start()

			defaults.Printf("watching %s, press ctrl-c to stop\n", v.Root())

			ctx := cmd.Context()

			for {
				select {
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}

					defaults.Printf("%v %v %s\n", ev.Kind, ev.Change, ev.ID)
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
}
