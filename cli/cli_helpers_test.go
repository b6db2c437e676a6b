package cli_test

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"testing"
	"time"

	"github.com/nativewit/witflo/cli"
	"github.com/nativewit/witflo/clierror"
	"github.com/nativewit/witflo/genericclioptions"
	"github.com/nativewit/witflo/input"
)

const mockedPassphrase = "mocked_passphrase_input"

type testEnv struct {
	tempDir       string
	configPath    string
	workspaceRoot string
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()

	tempDir := t.TempDir()

	f, err := os.CreateTemp(tempDir, ".witflo.*.toml")
	if err != nil {
		t.Fatalf("failed to create temp config file: %v", err)
	}
	defer func() { //nolint:wsl
		_ = f.Close()
	}()

	workspaceRoot := path.Join(tempDir, ".witflo")

	content := fmt.Sprintf(`
		[workspace]
		root = '%s'
		session_duration = '%s'
	`, workspaceRoot, "0m")

	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("failed to write config content: %v", err)
	}

	if err := f.Sync(); err != nil {
		t.Fatalf("failed to flush config file: %v", err)
	}

	return testEnv{
		tempDir:       tempDir,
		configPath:    f.Name(),
		workspaceRoot: workspaceRoot,
	}
}

// setupIOStreams creates IOStreams with a mocked stdin and wires clierror
// to print rather than exit, so a failing command doesn't kill the test
// binary.
func setupIOStreams(t *testing.T, stdinData []byte, stdinFileInfoFn func(string, int) os.FileInfo) (ioStreams *genericclioptions.IOStreams, out *bytes.Buffer, errOut *bytes.Buffer) {
	t.Helper()

	var (
		buf       = bytes.NewBuffer(stdinData)
		stdinInfo = stdinFileInfoFn("stdin", len(stdinData))
	)

	stdinReader := genericclioptions.NewTestFdReader(buf, 0, stdinInfo)

	ioStreams, _, out, errOut = genericclioptions.NewTestIOStreams(stdinReader)
	ioStreams.Verbose = true

	clierror.SetErrorHandler(clierror.PrintErrHandler)
	clierror.SetErrWriter(ioStreams.ErrOut)

	t.Cleanup(func() { //nolint:wsl
		clierror.ResetErrorHandler()
		clierror.ResetErrWriter()
	})

	return
}

func newTTYFileInfo(name string, size int) os.FileInfo {
	return genericclioptions.NewMockFileInfo(name, int64(size), os.ModeCharDevice, false, time.Now())
}

func newNonTTYFileInfo(name string, size int) os.FileInfo {
	return genericclioptions.NewMockFileInfo(name, int64(size), 0, false, time.Now())
}

// mockPassphrase makes every PromptReadSecure/PromptNewPassword call in the
// test return passphrase, regardless of which fd or prompt it was asked
// for. Good enough here since tests only ever juggle one passphrase at a
// time.
func mockPassphrase(t *testing.T, passphrase string) {
	t.Helper()

	input.SetDefaultReadPassword(func(int) ([]byte, error) {
		return []byte(passphrase), nil
	})

	t.Cleanup(input.ResetDefaultReadPassword)
}

func mustInitWorkspace(t *testing.T, configPath string) {
	t.Helper()

	mockPassphrase(t, mockedPassphrase)

	ioStreams, _, errOut := setupIOStreams(t, nil, newTTYFileInfo)

	cmd := cli.NewDefaultWitfloCommand(ioStreams, []string{
		"init", "--config", configPath,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init command failed: %v\nstderr: %s", err, errOut.String())
	}
}

// mustCreateVault creates a vault in the workspace at configPath and
// returns its id, parsed out of the command's own confirmation message.
func mustCreateVault(t *testing.T, configPath string) string {
	t.Helper()

	mockPassphrase(t, mockedPassphrase)

	ioStreams, out, errOut := setupIOStreams(t, nil, newTTYFileInfo)

	cmd := cli.NewDefaultWitfloCommand(ioStreams, []string{
		"vault", "create", "--config", configPath,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("vault create command failed: %v\nstderr: %s", err, errOut.String())
	}

	var vaultID string
	if _, err := fmt.Sscanf(out.String(), "INFO witflo: created vault %s\n", &vaultID); err != nil {
		t.Fatalf("failed to parse vault id from output %q: %v", out.String(), err)
	}

	return vaultID
}
