// Command cooptask runs a demo workload on a cooperative scheduler and
// reports what happened.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "cooptask",
		Usage:     "drive cooperative/background tasks from the command line",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "log output: text, json, console or logrus",
				EnvVars: []string{"COOPTASK_LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "minimum log level: debug, info, warn or error",
				EnvVars: []string{"COOPTASK_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			runCommand(),
		},
	}
}
