package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/zoobzio/capitan"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	capitan.Shutdown()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
