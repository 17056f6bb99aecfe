// Package main implements the command line of the scheduled transaction
// engine.
//
// The replay command applies a YAML script of accounts and timed operations to
// a fresh engine, and the info command prints a schedule from the database of
// a previous replay.
//
// 	delay replay --script schedules.yaml --db delay.db
// 	delay info --db delay.db --id 1
//
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/delay/cli"
	"go.dedis.ch/delay/cli/ucli"
	_ "go.dedis.ch/delay/contracts/transfer/json"
	_ "go.dedis.ch/delay/core/account/json"
	"go.dedis.ch/delay/serde"
	"go.dedis.ch/delay/serde/cbor"
	"go.dedis.ch/delay/serde/json"
	"golang.org/x/xerrors"
)

func main() {
	err := run(os.Args, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	builder := ucli.NewBuilder("delay", "scheduled transaction engine", nil)
	builder.(*ucli.Builder).SetWriter(out)

	format := cli.StringFlag{
		Name:  "format",
		Usage: "serialization format of the database, json or cbor",
		Value: "json",
	}

	cmd := builder.SetCommand("replay")
	cmd.SetDescription("replay a script of scheduled transactions")
	cmd.SetFlags(
		cli.StringFlag{
			Name:     "script",
			Usage:    "path to the YAML script",
			Required: true,
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "path to the YAML configuration of the engine",
		},
		cli.StringFlag{
			Name:  "db",
			Usage: "path to the database where the schedules are persisted",
		},
		format,
		cli.StringFlag{
			Name:  "metrics",
			Usage: "address where the metrics are served during the replay",
		},
		cli.DurationFlag{
			Name:  "wait",
			Usage: "time to wait after the replay before exiting",
		},
	)
	cmd.SetAction(replayAction{out: out}.Execute)

	cmd = builder.SetCommand("info")
	cmd.SetDescription("print the schedules of a database")
	cmd.SetFlags(
		cli.StringFlag{
			Name:     "db",
			Usage:    "path to the database",
			Required: true,
		},
		cli.IntFlag{
			Name:  "id",
			Usage: "identifier of the schedule to print, or 0 for the pending ones",
		},
		format,
	)
	cmd.SetAction(infoAction{out: out}.Execute)

	return builder.Build().Run(args)
}

func contextOf(format string) (serde.Context, error) {
	switch format {
	case "", "json":
		return json.NewContext(), nil
	case "cbor":
		return cbor.NewContext(), nil
	default:
		return serde.Context{}, xerrors.Errorf("unknown format '%s'", format)
	}
}
