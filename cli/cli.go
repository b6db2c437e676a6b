// Package cli wires the witflo cobra command tree: a root command that
// unlocks a workspace (via a custodied daemon session or an interactive
// passphrase prompt) and opens an active vault before every subcommand
// runs, using a persistent pre/post-run skip-list so commands that manage
// the workspace or config themselves (init, config, unlock, ...) can opt
// out of part or all of that setup.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/nativewit/witflo/clierror"
	"github.com/nativewit/witflo/daemon"
	"github.com/nativewit/witflo/genericclioptions"
	"github.com/nativewit/witflo/input"
	"github.com/nativewit/witflo/vault"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
	"github.com/nativewit/witflo/workspace"
)

const (
	// defaultWorkspaceDirname is the default workspace root, created under
	// the user's home directory.
	defaultWorkspaceDirname = ".witflo"
)

var (
	// preRunSkipPaths lists full command paths (cmd.CommandPath()) that
	// bypass the persistent pre-run logic entirely: they manage the
	// workspace/config themselves.
	preRunSkipPaths = []string{
		"witflo",
		"witflo config",
		"witflo config generate",
		"witflo config validate",
		"witflo init",
	}

	// preRunPartialPaths open the workspace but skip auto-selecting and
	// opening a vault. Keyed by full command path rather than leaf name,
	// since leaf names like "create"/"list" are reused under "note" and
	// "notebook", where a vault must already be open.
	preRunPartialPaths = []string{
		"witflo unlock",
		"witflo lock",
		"witflo passwd",
		"witflo vault create",
		"witflo vault list",
	}

	// postRunSkipPaths bypass the persistent post-run teardown.
	postRunSkipPaths = []string{
		"witflo",
		"witflo config",
		"witflo config generate",
		"witflo config validate",
		"witflo init",
		"witflo unlock",
		"witflo lock",
	}
)

// WorkspaceOptions resolves and holds the on-disk workspace root and the
// unlocked *workspace.Workspace handle, once opened.
type WorkspaceOptions struct {
	Root      string
	Workspace *workspace.Workspace
}

var _ genericclioptions.BaseOptions = &WorkspaceOptions{}

// Complete sets the default workspace root if not provided.
func (o *WorkspaceOptions) Complete() error {
	if len(o.Root) == 0 {
		root, err := defaultWorkspaceRoot()
		if err != nil {
			return err
		}

		o.Root = root
	}

	return nil
}

// Validate checks that a workspace exists at Root.
func (o *WorkspaceOptions) Validate() error {
	if _, err := os.Stat(filepath.Join(o.Root, workspace.MetadataFileName)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return witerrors.ErrWorkspaceNotFound
		}

		return fmt.Errorf("stat workspace metadata: %w", err)
	}

	return nil
}

// Open unlocks the workspace, trying a custodied daemon session before
// falling back to an interactive passphrase prompt. On a fresh interactive
// unlock it logs the derived key into the daemon session for subsequent
// invocations.
func (o *WorkspaceOptions) Open(ctx context.Context, sessionClient *daemon.SessionClient, io *genericclioptions.StdioOptions, sessionDuration time.Duration) error {
	muk, found, err := getSessionMUK(ctx, sessionClient, o.Root)
	if err != nil {
		io.Debugf("witflo: session lookup failed: %v\n", err)
	}

	if !found {
		passphrase, err := input.PromptReadSecure(io.Out, int(io.In.Fd()), "[witflo] Passphrase for %q: ", o.Root)
		if err != nil {
			return fmt.Errorf("prompt passphrase: %w", err)
		}

		ws, err := workspace.Unlock(o.Root, passphrase)
		if err != nil {
			return err
		}

		o.Workspace = ws

		if sessionClient != nil && sessionDuration > 0 {
			if loginErr := loginSessionMUK(ctx, sessionClient, o.Root, ws, sessionDuration); loginErr != nil {
				io.Debugf("witflo: could not register session with daemon: %v\n", loginErr)
			}
		}

		return nil
	}

	ws, err := workspace.FromMasterUnlockKey(o.Root, muk)
	if err != nil {
		return err
	}

	o.Workspace = ws

	return nil
}

func getSessionMUK(ctx context.Context, c *daemon.SessionClient, root string) (vaultcrypto.MasterUnlockKey, bool, error) {
	if c == nil {
		return vaultcrypto.MasterUnlockKey{}, false, nil
	}

	return c.GetSession(ctx, root)
}

func loginSessionMUK(ctx context.Context, c *daemon.SessionClient, root string, ws *workspace.Workspace, duration time.Duration) error {
	muk, err := ws.MasterUnlockKeyCopy()
	if err != nil {
		return err
	}

	return c.Login(ctx, root, muk, duration)
}

func defaultWorkspaceRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, defaultWorkspaceDirname), nil
}

// VaultOptions resolves which vault within the workspace is active and
// holds the *vault.UnlockedVault handle, once opened.
type VaultOptions struct {
	ID    string
	Vault *vault.UnlockedVault
}

var _ genericclioptions.BaseOptions = &VaultOptions{}

func (*VaultOptions) Complete() error { return nil }

func (*VaultOptions) Validate() error { return nil }

// Open resolves o.ID (auto-selecting the workspace's sole vault if ID is
// empty and there is exactly one) and opens it under ws.
func (o *VaultOptions) Open(ws *workspace.Workspace) error {
	if len(o.ID) == 0 {
		infos, err := ws.ListVaults()
		if err != nil {
			return err
		}

		switch len(infos) {
		case 0:
			return witerrors.ErrVaultNotFound
		case 1:
			o.ID = infos[0].VaultID
		default:
			return errors.New("witflo: multiple vaults in this workspace; specify one with --vault")
		}
	}

	vaultKey, err := ws.VaultKey(o.ID)
	if err != nil {
		return err
	}
	defer vaultKey.Dispose()

	v, err := vault.Open(vaultRoot(ws.Root, o.ID), vaultKey)
	if err != nil {
		return err
	}

	o.Vault = v

	return nil
}

func vaultRoot(workspaceRoot, vaultID string) string {
	return filepath.Join(workspaceRoot, "vaults", vaultID)
}

// DefaultWitfloOptions is the options struct backing the root `witflo`
// command: it owns the shared stdio, workspace, vault, and config state
// every subcommand needs, set up once in PersistentPreRun.
type DefaultWitfloOptions struct {
	*genericclioptions.StdioOptions

	workspaceOptions *WorkspaceOptions
	vaultOptions     *VaultOptions
	configOptions    *ConfigOptions

	// sessionClient talks to the session daemon, if reachable. Lazily
	// initialized in Run.
	sessionClient *daemon.SessionClient
}

var _ genericclioptions.CmdOptions = &DefaultWitfloOptions{}

// NewDefaultWitfloOptions constructs a DefaultWitfloOptions ready for flag
// binding.
func NewDefaultWitfloOptions(iostreams *genericclioptions.IOStreams) *DefaultWitfloOptions {
	return &DefaultWitfloOptions{
		StdioOptions:     &genericclioptions.StdioOptions{IOStreams: iostreams},
		workspaceOptions: &WorkspaceOptions{},
		vaultOptions:     &VaultOptions{},
		configOptions:    NewConfigOptions(),
	}
}

func (o *DefaultWitfloOptions) Complete() error {
	if err := o.StdioOptions.Complete(); err != nil {
		return err
	}

	if err := o.configOptions.Complete(); err != nil {
		return err
	}

	// Precedence: --workspace flag, then the WITFLO_WORKSPACE environment
	// variable, then config file, then the default home-directory path
	// filled in by WorkspaceOptions.Complete.
	if len(o.workspaceOptions.Root) == 0 {
		o.workspaceOptions.Root = os.Getenv("WITFLO_WORKSPACE")
	}

	if len(o.workspaceOptions.Root) == 0 {
		o.workspaceOptions.Root = o.configOptions.Resolved().WorkspaceRoot
	}

	return o.workspaceOptions.Complete()
}

func (o *DefaultWitfloOptions) Validate() error {
	if err := o.StdioOptions.Validate(); err != nil {
		return err
	}

	return o.workspaceOptions.Validate()
}

// Run opens the session-daemon client (best effort), unlocks the
// workspace, and, unless cmd's path is in preRunPartialPaths, opens the
// active vault too.
func (o *DefaultWitfloOptions) Run(ctx context.Context, args ...string) error {
	cmdPath := ""
	if len(args) == 1 {
		cmdPath = args[0]
	}

	c, err := daemon.Client(daemon.SocketPath())
	if err != nil {
		o.Debugf("witflo: daemon unavailable, continuing without session support: %v\n", err)
		c = nil
	}

	o.sessionClient = c

	sessionDuration := time.Duration(o.configOptions.Resolved().SessionDuration)

	if err := o.workspaceOptions.Open(ctx, c, o.StdioOptions, sessionDuration); err != nil {
		return err
	}

	if slices.Contains(preRunPartialPaths, cmdPath) {
		return nil
	}

	if len(o.vaultOptions.ID) == 0 {
		o.vaultOptions.ID = o.configOptions.Resolved().DefaultVaultID
	}

	return o.vaultOptions.Open(o.workspaceOptions.Workspace)
}

// NewDefaultWitfloCommand creates the `witflo` command with its full
// subcommand tree.
func NewDefaultWitfloCommand(iostreams *genericclioptions.IOStreams, args []string) *cobra.Command {
	o := NewDefaultWitfloOptions(iostreams)

	cmd := &cobra.Command{
		Use:   "witflo",
		Short: "Zero-trust, offline-first notes engine",
		Long: `witflo is a local-first, end-to-end encrypted notes engine: a workspace
holds one master passphrase and any number of independently-keyed vaults,
each a content-addressed encrypted object store kept in sync across
devices via a signed operation log.

Environment Variables:
    WITFLO_CONFIG_PATH: overrides the default config path: "~/.witflo.toml".
    WITFLO_WORKSPACE: overrides the workspace root (the --workspace flag wins).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if slices.Contains(preRunSkipPaths, cmd.CommandPath()) {
				return
			}

			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, cmd.CommandPath()))
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if slices.Contains(postRunSkipPaths, cmd.CommandPath()) {
				return
			}

			if o.vaultOptions.Vault != nil {
				o.vaultOptions.Vault.Close()
			}

			if o.workspaceOptions.Workspace != nil && o.sessionClient == nil {
				o.workspaceOptions.Workspace.Lock()
			}

			if o.sessionClient != nil {
				clierror.Check(o.sessionClient.Close())
			}
		},
	}

	cmd.SetArgs(args)

	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringVarP(&o.workspaceOptions.Root, "workspace", "w", "",
		fmt.Sprintf("workspace root path (default: ~/%s)", defaultWorkspaceDirname))
	cmd.PersistentFlags().StringVar(&o.vaultOptions.ID, "vault", "", "active vault id (default: the workspace's only vault)")
	cmd.PersistentFlags().StringVar(&o.configOptions.cliFlags.configPath, "config", "",
		fmt.Sprintf("configuration file path (default: ~/%s)", defaultConfigName))

	cmd.AddCommand(NewCmdConfig(o))
	cmd.AddCommand(NewCmdInit(o))
	cmd.AddCommand(NewCmdUnlock(o))
	cmd.AddCommand(NewCmdLock(o))
	cmd.AddCommand(NewCmdPasswd(o))

	cmd.AddCommand(NewCmdVault(o))
	cmd.AddCommand(NewCmdNote(o))
	cmd.AddCommand(NewCmdNotebook(o))
	cmd.AddCommand(NewCmdSync(o))

	return cmd
}
