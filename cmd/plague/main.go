// Command plague runs doctor elimination games against a local oracle and
// inspects the state they persisted.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/urfave/cli.v1"
)

var (
	DataDirFlag = cli.StringFlag{
		Name:   "datadir",
		Usage:  "Directory of the pebble database, in memory when empty",
		EnvVar: "PLAGUE_DATA_DIR",
	}
	SeedFlag = cli.StringFlag{
		Name:  "seed",
		Usage: "Seed of the local oracle",
	}
	DoctorsFlag = cli.UintFlag{
		Name:  "doctors",
		Usage: "Number of doctors in the game",
	}
	HoldersFlag = cli.UintFlag{
		Name:  "holders",
		Usage: "Number of accounts the doctors are spread over",
	}
	MaxEpochsFlag = cli.UintFlag{
		Name:  "maxepochs",
		Usage: "Epoch cap, 0 for none",
	}
	MetricsAddrFlag = cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "Serve prometheus metrics on this address while simulating",
	}
	VerbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "Log level (trace, debug, info, warn, error)",
	}
	LogFormatFlag = cli.StringFlag{
		Name:  "log.format",
		Usage: "Log format (console, json)",
	}
	EpochFlag = cli.UintFlag{
		Name:  "epoch",
		Usage: "Inspect the last snapshot of this epoch instead of the latest",
	}
	RecentFlag = cli.IntFlag{
		Name:  "recent",
		Usage: "Number of recent brew logs to show",
		Value: 10,
	}
)

var (
	simulateCommand = cli.Command{
		Name:   "simulate",
		Usage:  "Play a whole game and its brewing season on a simulated clock",
		Action: simulate,
		Flags: []cli.Flag{
			DataDirFlag,
			SeedFlag,
			DoctorsFlag,
			HoldersFlag,
			MaxEpochsFlag,
			MetricsAddrFlag,
			VerbosityFlag,
			LogFormatFlag,
		},
		Description: `
plague simulate --doctors 500 --seed demo
runs every epoch until game over, pays the survivors and brews with the dead.
Settings not given as flags are read from PLAGUE_* environment variables.
`,
	}
	inspectCommand = cli.Command{
		Name:      "inspect",
		Usage:     "Print the state persisted by a simulation",
		ArgsUsage: "",
		Action:    inspect,
		Flags: []cli.Flag{
			DataDirFlag,
			EpochFlag,
			RecentFlag,
		},
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "doctor elimination game simulator"
	app.Commands = []cli.Command{
		simulateCommand,
		inspectCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
