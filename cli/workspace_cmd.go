package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nativewit/witflo/clierror"
	"github.com/nativewit/witflo/daemon"
	"github.com/nativewit/witflo/genericclioptions"
	"github.com/nativewit/witflo/input"
	"github.com/nativewit/witflo/workspace"
)

// initOptions holds data required to create a brand-new workspace.
type initOptions struct {
	*genericclioptions.StdioOptions

	root string
}

var _ genericclioptions.CmdOptions = &initOptions{}

func (*initOptions) Complete() error { return nil }

func (*initOptions) Validate() error { return nil }

func (o *initOptions) Run(context.Context, ...string) error {
	passphrase, err := input.PromptNewPassword(o.Out, int(o.In.Fd()), 12)
	if err != nil {
		return fmt.Errorf("prompt new passphrase: %w", err)
	}

	ws, err := workspace.Initialize(o.root, passphrase)
	if err != nil {
		return err
	}

	ws.Lock()

	o.Infof("witflo: workspace initialized at %s\n", o.root)

	return nil
}

// NewCmdInit creates the `witflo init` command.
func NewCmdInit(defaults *DefaultWitfloOptions) *cobra.Command {
	o := &initOptions{StdioOptions: defaults.StdioOptions}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new workspace",
		Long:  `Create a new workspace, prompting for a master passphrase.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := defaults.Complete(); err != nil {
				return clierror.Check(err)
			}

			o.root = defaults.workspaceOptions.Root

			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	return cmd
}

// unlockOptions holds data required to unlock a workspace and register it
// with the session daemon.
type unlockOptions struct {
	*genericclioptions.StdioOptions

	root            string
	sessionDuration Duration
}

var _ genericclioptions.CmdOptions = &unlockOptions{}

func (*unlockOptions) Complete() error { return nil }

func (*unlockOptions) Validate() error { return nil }

func (o *unlockOptions) Run(ctx context.Context, _ ...string) error {
	passphrase, err := input.PromptReadSecure(o.Out, int(o.In.Fd()), "[witflo] Passphrase for %q: ", o.root)
	if err != nil {
		return fmt.Errorf("prompt passphrase: %w", err)
	}

	ws, err := workspace.Unlock(o.root, passphrase)
	if err != nil {
		return err
	}
	defer ws.Lock()

	c, err := daemon.Client(daemon.SocketPath())
	if err != nil {
		return fmt.Errorf("witflo: session daemon unavailable: %w", err)
	}
	defer func() { _ = c.Close() }()

	muk, err := ws.MasterUnlockKeyCopy()
	if err != nil {
		return err
	}

	if err := c.Login(ctx, o.root, muk, time.Duration(o.sessionDuration)); err != nil {
		return fmt.Errorf("register session: %w", err)
	}

	o.Infof("witflo: unlocked, session active for %s\n", time.Duration(o.sessionDuration))

	return nil
}

// NewCmdUnlock creates the `witflo unlock` command: unlocks the workspace
// once and custodies the derived key with the session daemon so later
// invocations skip the passphrase prompt.
func NewCmdUnlock(defaults *DefaultWitfloOptions) *cobra.Command {
	o := &unlockOptions{StdioOptions: defaults.StdioOptions}

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the workspace and start a custodied session",
		Run: func(cmd *cobra.Command, _ []string) {
			o.root = defaults.workspaceOptions.Root
			o.sessionDuration = defaults.configOptions.Resolved().SessionDuration
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	return cmd
}

// lockOptions ends a custodied session, if one exists.
type lockOptions struct {
	*genericclioptions.StdioOptions

	root string
}

var _ genericclioptions.CmdOptions = &lockOptions{}

func (*lockOptions) Complete() error { return nil }

func (*lockOptions) Validate() error { return nil }

func (o *lockOptions) Run(ctx context.Context, _ ...string) error {
	c, err := daemon.Client(daemon.SocketPath())
	if err != nil {
		o.Infof("witflo: no active session\n")
		return nil
	}
	defer func() { _ = c.Close() }()

	if err := c.Logout(ctx, o.root); err != nil {
		return err
	}

	o.Infof("witflo: session ended\n")

	return nil
}

// NewCmdLock creates the `witflo lock` command.
func NewCmdLock(defaults *DefaultWitfloOptions) *cobra.Command {
	o := &lockOptions{StdioOptions: defaults.StdioOptions}

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "End the custodied session immediately",
		Run: func(cmd *cobra.Command, _ []string) {
			o.root = defaults.workspaceOptions.Root
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	return cmd
}

// passwdOptions changes the workspace master passphrase.
type passwdOptions struct {
	*genericclioptions.StdioOptions

	root string
}

var _ genericclioptions.CmdOptions = &passwdOptions{}

func (*passwdOptions) Complete() error { return nil }

func (*passwdOptions) Validate() error { return nil }

func (o *passwdOptions) Run(context.Context, ...string) error {
	current, err := input.PromptReadSecure(o.Out, int(o.In.Fd()), "[witflo] Current passphrase: ")
	if err != nil {
		return fmt.Errorf("prompt current passphrase: %w", err)
	}

	ws, err := workspace.Unlock(o.root, current)
	if err != nil {
		return err
	}
	defer ws.Lock()

	newPassphrase, err := input.PromptNewPassword(o.Out, int(o.In.Fd()), 12)
	if err != nil {
		return fmt.Errorf("prompt new passphrase: %w", err)
	}

	currentAgain, err := input.PromptReadSecure(o.Out, int(o.In.Fd()), "[witflo] Current passphrase (again, to confirm the change): ")
	if err != nil {
		return fmt.Errorf("prompt current passphrase: %w", err)
	}

	if err := ws.ChangeMasterPassword(currentAgain, newPassphrase); err != nil {
		return err
	}

	o.Infof("witflo: master passphrase changed\n")

	return nil
}

// NewCmdPasswd creates the `witflo passwd` command.
func NewCmdPasswd(defaults *DefaultWitfloOptions) *cobra.Command {
	o := &passwdOptions{StdioOptions: defaults.StdioOptions}

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the workspace master passphrase",
		Run: func(cmd *cobra.Command, _ []string) {
			o.root = defaults.workspaceOptions.Root
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	return cmd
}
