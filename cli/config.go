package cli

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/nativewit/witflo/clierror"
	"github.com/nativewit/witflo/genericclioptions"
)

// ConfigOptions holds cli-flag and file configuration, and resolves them
// into a single ResolvedConfig.
type ConfigOptions struct {
	fileConfig *FileConfig
	cliFlags   *configFlags

	resolved *ResolvedConfig
}

type configFlags struct {
	configPath string
	vaultID    string
}

// ResolvedConfig is the final merged configuration: cli flags take
// precedence over config-file values.
//
//nolint:tagliatelle
type ResolvedConfig struct {
	WorkspaceRoot   string   `json:"workspace_root,omitempty"`
	DefaultVaultID  string   `json:"default_vault_id,omitempty"`
	SessionDuration Duration `json:"session_duration,omitempty"`
	SyncBackend     string   `json:"sync_backend,omitempty"`
	SyncEndpoint    string   `json:"sync_endpoint,omitempty"`
}

type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

// NewConfigOptions constructs a ConfigOptions with empty defaults.
func NewConfigOptions() *ConfigOptions {
	return &ConfigOptions{
		fileConfig: newFileConfig(),
		cliFlags:   &configFlags{},
		resolved:   &ResolvedConfig{},
	}
}

func (o *ConfigOptions) Resolved() *ResolvedConfig { return o.resolved }

func (o *ConfigOptions) Complete() error {
	c, err := LoadFileConfig(o.cliFlags.configPath)
	if err != nil {
		return err
	}

	o.fileConfig = c

	return o.resolve()
}

func (o *ConfigOptions) resolve() error {
	o.resolved.WorkspaceRoot = o.fileConfig.Workspace.Root
	o.resolved.DefaultVaultID = cmp.Or(o.cliFlags.vaultID, o.fileConfig.Workspace.DefaultVault)

	if o.fileConfig.Sync != nil {
		o.resolved.SyncBackend = cmp.Or(o.fileConfig.Sync.Backend, "local")
		o.resolved.SyncEndpoint = o.fileConfig.Sync.Endpoint
	}

	sessionDuration := cmp.Or(o.fileConfig.Workspace.SessionDuration, defaultSessionDuration)

	t, err := time.ParseDuration(sessionDuration)
	if err != nil {
		return fmt.Errorf("invalid session duration: %w", err)
	}

	o.resolved.SessionDuration = Duration(t)

	return nil
}

func (*ConfigOptions) Validate() error { return nil }

func (*ConfigOptions) Run(context.Context, ...string) error { return nil }

// NewCmdConfig creates the `witflo config` command tree.
func NewCmdConfig(defaults *DefaultWitfloOptions) *cobra.Command {
	o := defaults.configOptions

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Resolve and inspect the active witflo configuration",
		Long: fmt.Sprintf(`Resolve and display the active witflo configuration.

If --config is not provided, the default config path (~/%s) is used.`, defaultConfigName),
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))

			if len(o.fileConfig.path) == 0 {
				defaults.Infof("no config file found; using default values.\n")
				return
			}

			c := struct {
				Path     string `json:"path"`
				Parsed   any    `json:"parsed_config"`
				Resolved any    `json:"resolved_config"`
			}{
				Path:     o.fileConfig.path,
				Parsed:   o.fileConfig,
				Resolved: o.resolved,
			}

			defaults.Printf("%s", stringifyPretty(c))
		},
	}

	cmd.AddCommand(newGenerateConfigCmd(defaults))
	cmd.AddCommand(newValidateConfigCmd(defaults))

	return cmd
}

func stringifyPretty(v any) string {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("stringify error: %v", err)
	}

	return buf.String()
}

func newGenerateConfigCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Print a default config file",
		Long:  `Outputs the default configuration in TOML format to stdout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := toml.Marshal(newFileConfig())
			if err != nil {
				return err
			}

			defaults.Printf("%s", out)

			return nil
		},
	}
}

func newValidateConfigCmd(defaults *DefaultWitfloOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check config validity",
		Long: fmt.Sprintf(`Loads the configuration file and checks for common errors.

If --config is not provided, the default config path (~/%s) is used.`, defaultConfigName),
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.InheritedFlags().GetString("config")

			c, err := LoadFileConfig(configPath)
			if err != nil {
				return err
			}

			if len(c.path) == 0 {
				defaults.Printf("no config file found; nothing to validate.\n")
				return nil
			}

			defaults.Printf("%s: OK\n", c.path)

			return nil
		},
	}
}
