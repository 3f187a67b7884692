package main

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/urfave/cli.v1"

	"github.com/eigerco/plague/internal/game"
	"github.com/eigerco/plague/internal/store"
	"github.com/eigerco/plague/pkg/db"
	"github.com/eigerco/plague/pkg/db/pebble"
)

func inspect(ctx *cli.Context) error {
	dir := ctx.String(DataDirFlag.Name)
	if dir == "" {
		return errors.New("--datadir is required")
	}
	kv, err := pebble.NewKVStore(pebble.WithPath(dir))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer kv.Close()

	var epoch *uint32
	if ctx.IsSet(EpochFlag.Name) {
		e := uint32(ctx.Uint(EpochFlag.Name))
		epoch = &e
	}
	return report(ctx.App.Writer, kv, epoch, ctx.Int(RecentFlag.Name))
}

// report prints a snapshot and the tail of the brew journal
func report(out io.Writer, kv db.KVStore, epoch *uint32, recent int) error {
	snapshots := store.NewSnapshots(kv)

	var (
		snap game.Snapshot
		err  error
	)
	if epoch != nil {
		snap, err = snapshots.At(*epoch)
	} else {
		snap, err = snapshots.Latest()
	}
	if err != nil {
		return err
	}

	epochs, err := snapshots.Epochs()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "snapshots: %d epochs\n", len(epochs))
	fmt.Fprintf(out, "epoch %d, phase %s\n", snap.CurrentEpoch(), game.Phase(snap.Phase))
	fmt.Fprintf(out, "healthy: %d, survivors: %d\n", snap.HealthyCount(), snap.Survivors)
	fmt.Fprintf(out, "pool: %s, withdrawn: %d\n", snap.PoolAmount().Dec(), len(snap.Withdrawn))
	for _, e := range snap.Epochs {
		fmt.Fprintf(out, "  epoch %d rate %d infected %d dead %d\n", e.Index, e.InfectionRate, e.InfectedCount, e.DeadCount)
	}

	logs, err := store.NewBrewLogs(kv)
	if err != nil {
		return err
	}
	n, err := logs.Len()
	if err != nil {
		return err
	}
	tail, err := logs.Recent(recent)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "brew logs: %d\n", n)
	for _, l := range tail {
		fmt.Fprintf(out, "  epoch %d doctor %d succeeded %t at %d\n", l.Epoch, l.Doctor, l.Succeeded, l.Timestamp)
	}
	return nil
}
