package main

import (
	"context"
	"strconv"

	"github.com/davecheney/ferry/internal/ferry"
	"github.com/davecheney/ferry/internal/inbox"
	"github.com/davecheney/ferry/internal/options"
	"github.com/davecheney/ferry/internal/outbox"
	"github.com/davecheney/ferry/internal/snowflake"
	"github.com/davecheney/ferry/internal/wire"
)

type SyncCmd struct {
	Retries  int      `help:"attempts per network operation"`
	Accounts []string `arg:"" optional:"" help:"account name prefixes; default all"`
}

// Run synchronises each selected account in turn: queued actions go out
// first, then new timeline and notification content comes in. One
// account's failure is reported and the next account still runs.
func (s *SyncCmd) Run(ctx *Context) error {
	prefixes := s.Accounts
	if len(prefixes) == 0 {
		names, err := ferry.Names(ctx.Dir)
		if err != nil {
			return err
		}
		prefixes = names
	}

	var firstErr error
	for _, prefix := range prefixes {
		if err := s.syncAccount(ctx, prefix); err != nil {
			ctx.Log.Error("sync failed", "account", prefix, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *SyncCmd) syncAccount(ctx *Context, prefix string) error {
	account, err := ferry.Find(ctx.Dir, prefix)
	if err != nil {
		return err
	}
	log := ctx.Log.With("account", account.Name)

	retries := s.Retries
	if retries <= 0 {
		retries, _ = strconv.Atoi(account.Options.GetDefault(options.Retries, ""))
	}
	client := &wire.Client{Token: account.Token()}
	driver := &wire.Driver{Retries: retries, Log: log}

	q, err := account.OpenQueue()
	if err != nil {
		return err
	}
	sender := &outbox.Sender{
		Client:  client,
		Driver:  driver,
		Account: account,
		Keys:    new(snowflake.Generator),
		Log:     log,
	}
	sendErr := sender.Run(context.Background(), q)
	// sent entries leave the queue even when a later one failed
	if err := q.Flush(); err != nil {
		return err
	}

	receiver := &inbox.Receiver{
		Client:  client,
		Driver:  driver,
		Account: account,
		Log:     log,
	}
	recvErr := receiver.Run(context.Background())
	if err := account.Options.Flush(); err != nil {
		return err
	}

	if sendErr != nil {
		return sendErr
	}
	return recvErr
}
