package main

import (
	"os"

	"github.com/LukeWait/rps-lan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
