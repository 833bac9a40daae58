package client

import (
	"context"
	"encoding/json"
	"fmt"
)

const resolveUsage = "resolve <id> keep|accept"

// command runs one subcommand with its positional arguments.
type command struct {
	args  int
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"create":  {args: 1, usage: "create <json>", run: (*App).create},
	"put":     {args: 2, usage: "put <id> <json>", run: (*App).put},
	"delete":  {args: 1, usage: "delete <id>", run: (*App).remove},
	"get":     {args: 1, usage: "get <id>", run: (*App).get},
	"list":    {args: 0, usage: "list", run: (*App).list},
	"sync":    {args: 0, usage: "sync", run: (*App).syncNow},
	"pending": {args: 0, usage: "pending", run: (*App).pending},
	"resolve": {args: 2, usage: resolveUsage, run: (*App).resolve},
}

func (a *App) runCommand(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if len(args) != cmd.args {
		return fmt.Errorf("%w: usage: %s", ErrUsage, cmd.usage)
	}

	return cmd.run(a, ctx, args)
}

func (a *App) create(ctx context.Context, args []string) error {
	rec, err := a.records.Create(ctx, json.RawMessage(args[0]))
	if err != nil {
		return err
	}
	a.println(renderRecord(rec))
	return nil
}

func (a *App) put(ctx context.Context, args []string) error {
	rec, err := a.records.Put(ctx, args[0], json.RawMessage(args[1]))
	if err != nil {
		return err
	}
	a.println(renderRecord(rec))
	return nil
}

func (a *App) remove(ctx context.Context, args []string) error {
	_, err := a.records.Delete(ctx, args[0])
	return err
}

func (a *App) get(ctx context.Context, args []string) error {
	rec, err := a.records.Get(ctx, args[0])
	if err != nil {
		return err
	}
	a.println(renderRecord(rec))
	return nil
}

func (a *App) list(ctx context.Context, _ []string) error {
	records, err := a.records.List(ctx)
	if err != nil {
		return err
	}
	a.println(renderRecords(records))
	return nil
}

func (a *App) syncNow(ctx context.Context, _ []string) error {
	report, err := a.orchestrator.SyncNow(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	a.println(renderReport(report))
	return nil
}

func (a *App) pending(ctx context.Context, _ []string) error {
	n, err := a.store.CountPending(ctx)
	if err != nil {
		return err
	}
	a.println(fmt.Sprintf("%d record(s) waiting for sync", n))
	return nil
}

func (a *App) resolve(ctx context.Context, args []string) error {
	switch args[1] {
	case "keep":
		return a.records.ResolveConflict(ctx, args[0], true)
	case "accept":
		return a.records.ResolveConflict(ctx, args[0], false)
	}
	return fmt.Errorf("%w: usage: %s", ErrUsage, resolveUsage)
}
