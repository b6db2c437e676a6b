package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/nativewit/witflo/daemon"
)

var Version = "0.0.0"

func main() {
	help := flag.Bool("help", false, "Show usage information")
	version := flag.Bool("version", false, "Show version")
	verbose := flag.Bool("verbose", false, "Enable debug-level logging")

	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `witflod - session custody daemon for the 'witflo' cli.

Usage: witflod [options]

Custodies derived workspace keys across short-lived 'witflo' invocations.
Runs over a UNIX socket at /run/user/$UID/witflod.sock and takes no
arguments.

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	if *version {
		fmt.Printf("%s\n", Version)
		return
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if err := daemon.Run(daemon.SocketPath(), logger); err != nil {
		logger.Fatal().Err(err).Msg("witflod exited")
	}
}
