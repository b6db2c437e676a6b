package main

import (
	"context"
	"os"

	"github.com/nativewit/witflo/cli"
	"github.com/nativewit/witflo/genericclioptions"
)

func main() {
	cmd := cli.NewDefaultWitfloCommand(genericclioptions.NewDefaultIOStreams(), os.Args[1:])

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
