package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/delay/cli"
	"go.dedis.ch/delay/core/schedule/config"
	"go.dedis.ch/delay/core/schedule/engine"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store/kv"
	"go.dedis.ch/delay/serde/json"
	"golang.org/x/xerrors"
)

// infoAction is the action of the info command. It prints the JSON form of a
// schedule, or the identifiers of the pending schedules.
type infoAction struct {
	out io.Writer
}

func (a infoAction) Execute(flags cli.Flags) error {
	ctx, err := contextOf(flags.String("format"))
	if err != nil {
		return err
	}

	path := flags.Path("db")

	_, err = os.Stat(path)
	if err != nil {
		return xerrors.Errorf("database not found: %v", err)
	}

	db, err := kv.New(path)
	if err != nil {
		return xerrors.Errorf("failed to open database: %v", err)
	}

	defer db.Close()

	eng, err := engine.NewEngine(config.Default(), nil, nil,
		engine.WithDB(db), engine.WithSerdeContext(ctx))
	if err != nil {
		return xerrors.Errorf("failed to restore engine: %v", err)
	}

	id := flags.Int("id")
	if id <= 0 {
		fmt.Fprintf(a.out, "time: %v\n", eng.Time())
		fmt.Fprintf(a.out, "pending: %v\n", eng.Pending())

		return nil
	}

	entry, err := eng.GetScheduleInfo(types.ID(id))
	if err != nil {
		return err
	}

	data, err := entry.Serialize(json.NewContext())
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	fmt.Fprintf(a.out, "%s\n", data)

	return nil
}
