package main

import (
	"os"

	"github.com/alecthomas/kong"
	"golang.org/x/exp/slog"
)

type Context struct {
	Debug bool
	Dir   string
	Log   *slog.Logger
}

var cli struct {
	Debug bool   `help:"Enable debug mode."`
	Dir   string `help:"Account data directory." type:"path" default:"~/.ferry"`

	Init    InitCmd    `cmd:"" help:"Create a new account directory."`
	Queue   QueueCmd   `cmd:"" help:"Queue actions to send on the next sync."`
	Dequeue DequeueCmd `cmd:"" help:"Remove queued actions, or queue their undo."`
	Clear   ClearCmd   `cmd:"" help:"Drop every queued action for a route."`
	Show    ShowCmd    `cmd:"" help:"Print an account's queue or options."`
	Set     SetCmd     `cmd:"" help:"Set an account option."`
	Sync    SyncCmd    `cmd:"" help:"Send queued actions and fetch new content."`
}

func main() {
	ctx := kong.Parse(&cli)
	opts := slog.HandlerOptions{Level: slog.LevelInfo}
	if cli.Debug {
		opts.Level = slog.LevelDebug
	}
	err := ctx.Run(&Context{
		Debug: cli.Debug,
		Dir:   cli.Dir,
		Log:   slog.New(opts.NewTextHandler(os.Stderr)),
	})
	ctx.FatalIfErrorf(err)
}
