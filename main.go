package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/oakwood-commons/kvcombo/cmd"
	"github.com/oakwood-commons/kvcombo/internal/ui"
	"github.com/oakwood-commons/kvcombo/pkg/logger"
)

func main() {
	exitCode := 0
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 1
		if errors.Is(err, ui.ErrAborted) {
			exitCode = 130
		}
	}

	logger.Sync()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
