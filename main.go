package main

import (
	"context"
	"os"

	"github.com/edgesim/edgesim/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
