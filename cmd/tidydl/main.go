package main

import (
	"os"

	"github.com/danieljhkim/tidydl/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	err := cli.Execute()
	cli.ReportError(err)
	os.Exit(cli.ExitCode(err))
}
