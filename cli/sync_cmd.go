package cli

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nativewit/witflo/backend"
	"github.com/nativewit/witflo/syncmgr"
	"github.com/nativewit/witflo/syncop"
)

// newSyncManager wires a syncmgr.Manager for the active vault, grounded on
// the configured sync backend. Only the local no-op backend is wired so
// far; a non-"local" sync.backend degrades to it with a warning rather
// than failing outright, since an offline vault must stay usable.
func newSyncManager(defaults *DefaultWitfloOptions, logger zerolog.Logger) (*syncmgr.Manager, error) {
	ws := defaults.workspaceOptions.Workspace
	v := defaults.vaultOptions.Vault

	vaultKey, err := ws.VaultKey(v.VaultID())
	if err != nil {
		return nil, err
	}

	own, err := syncop.LoadOrCreateOwnDevice(v.Root(), vaultKey)
	if err != nil {
		return nil, err
	}

	devices, err := syncop.LoadTrustedDevices(v.Root(), vaultKey)
	if err != nil {
		return nil, err
	}

	cursor, err := syncop.LoadCursor(v.Root(), vaultKey)
	if err != nil {
		return nil, err
	}

	startClock := cursor.LastTimestamp
	if nowMillis := time.Now().UTC().UnixMilli(); nowMillis > startClock {
		startClock = nowMillis
	}

	resolved := defaults.configOptions.Resolved()

	be := resolveBackend(resolved.SyncBackend, logger)

	return syncmgr.NewManager(v.VaultID(), v, vaultKey, own.DeviceID, own.SignKey, devices, be, startClock, logger), nil
}

func resolveBackend(name string, logger zerolog.Logger) backend.Backend {
	switch name {
	case "", "local":
		return backend.NewLocalOnly()
	default:
		logger.Warn().Str("sync_backend", name).Msg("unsupported sync backend configured, falling back to local-only")
		return backend.NewLocalOnly()
	}
}

// NewCmdSync creates the `witflo sync` command tree.
func NewCmdSync(defaults *DefaultWitfloOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push and pull encrypted sync operations for the active vault",
	}

	cmd.AddCommand(newSyncPushCmd(defaults))
	cmd.AddCommand(newSyncPullCmd(defaults))
	cmd.AddCommand(newSyncStatusCmd(defaults))

	return cmd
}

func newSyncPushCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push locally queued operations to the sync backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zerolog.New(defaults.ErrOut).With().Timestamp().Logger()

			mgr, err := newSyncManager(defaults, logger)
			if err != nil {
				return err
			}

			n, err := mgr.Push(cmd.Context())
			if err != nil {
				return err
			}

			defaults.Printf("pushed %d operation(s)\n", n)

			return nil
		},
	}
}

func newSyncPullCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull and apply remote operations from the sync backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zerolog.New(defaults.ErrOut).With().Timestamp().Logger()

			mgr, err := newSyncManager(defaults, logger)
			if err != nil {
				return err
			}

			n, err := mgr.Pull(cmd.Context(), limit)
			if err != nil {
				return err
			}

			defaults.Printf("applied %d operation(s)\n", n)

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 200, "maximum number of operations to pull in one call")

	return cmd
}

func newSyncStatusCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Push then pull once, reporting a combined result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zerolog.New(defaults.ErrOut).With().Timestamp().Logger()

			mgr, err := newSyncManager(defaults, logger)
			if err != nil {
				return err
			}

			result := mgr.Sync(cmd.Context())

			defaults.Printf("pushed=%d pulled=%d success=%t\n", result.Pushed, result.Pulled, result.Success)

			if result.Error != nil {
				return result.Error
			}

			return nil
		},
	}
}
