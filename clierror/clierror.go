// Package clierror turns a command's returned error into a user-facing
// message and an exit, the way cobra commands in this repo always finish:
// via [Check], never a bare os.Exit scattered through command bodies.
package clierror

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nativewit/witflo/witerrors"
)

const DefaultErrorExitCode = 1

var (
	// errHandler is the function used to handle cli errors.
	errHandler = FatalErrHandler

	// errWriter is used to output cli error messages.
	errWriter io.Writer = os.Stderr

	fprintf = fmt.Fprintf

	debugMode bool
)

// SetErrorHandler overrides the default [FatalErrHandler].
func SetErrorHandler(f func(string, int)) { errHandler = f }

// ResetErrorHandler restores the default error handler.
func ResetErrorHandler() { errHandler = FatalErrHandler }

// SetErrWriter overrides the default error output writer.
func SetErrWriter(w io.Writer) { errWriter = w }

// ResetErrWriter restores the default error output writer.
func ResetErrWriter() { errWriter = os.Stderr }

// DebugMode enables printing the raw underlying error alongside the
// friendly message.
func DebugMode(enabled bool) { debugMode = enabled }

// FatalErrHandler prints msg and exits with code.
func FatalErrHandler(msg string, code int) {
	printError(msg)
	os.Exit(code) //nolint:revive
}

// PrintErrHandler prints msg without exiting, for use in tests that need
// to inspect a command's error output without killing the test binary.
func PrintErrHandler(msg string, _ int) {
	printError(msg)
}

func printError(msg string) {
	if len(msg) == 0 {
		return
	}

	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	_, _ = fprintf(errWriter, "%s", msg)
}

// ErrExit may be returned by a command to print nothing but still exit
// non-zero.
var ErrExit = errors.New("exit")

// Check prints a friendly message for err (if any) and invokes the
// configured handler. With the default [FatalErrHandler], the process
// exits before Check returns.
func Check(err error) error {
	check(err, errHandler)
	return err
}

func check(err error, handle func(string, int)) {
	if err == nil {
		return
	}

	if debugMode {
		_, _ = fprintf(errWriter, "DEBUG %+v\n", err)
	}

	if errors.Is(err, ErrExit) {
		handle("", DefaultErrorExitCode)
		return
	}

	switch {
	case witerrors.Is(err, witerrors.WorkspaceNotFound):
		handle("witflo: workspace not found\nUse 'witflo init' to create one.", DefaultErrorExitCode)
	case witerrors.Is(err, witerrors.WorkspaceAlreadyExists):
		handle("witflo: a workspace already exists at this path.", DefaultErrorExitCode)
	case witerrors.Is(err, witerrors.InvalidPassphrase):
		handle("witflo: incorrect passphrase.", DefaultErrorExitCode)
	case witerrors.Is(err, witerrors.VaultNotFound):
		handle("witflo: vault not found.\nUse 'witflo vault create' or check 'witflo vault list'.", DefaultErrorExitCode)
	case witerrors.Is(err, witerrors.NoteMissing):
		handle("witflo: note not found.", DefaultErrorExitCode)
	case witerrors.Is(err, witerrors.NotebookMissing):
		handle("witflo: notebook not found.", DefaultErrorExitCode)
	case witerrors.Is(err, witerrors.CorruptedObject), witerrors.Is(err, witerrors.CorruptedIndex):
		handle("witflo: on-disk data failed an authenticity check; the file may be corrupted or tampered with.", DefaultErrorExitCode)
	case witerrors.Is(err, witerrors.AuthenticationFailure):
		handle("witflo: a sync operation's signature did not verify and was rejected.", DefaultErrorExitCode)
	default:
		msg := err.Error()
		if !strings.HasPrefix(msg, "witflo: ") {
			msg = "witflo: " + msg
		}

		handle(msg, DefaultErrorExitCode)
	}
}
