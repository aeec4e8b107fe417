package main

import (
	"fmt"

	"github.com/davecheney/ferry/internal/ferry"
	"github.com/davecheney/ferry/internal/queue"
)

type QueueCmd struct {
	Account string   `short:"a" help:"account name prefix"`
	Route   string   `arg:"" help:"action to queue: fav, boost, post, context, …"`
	IDs     []string `arg:"" help:"status ids, or draft paths for post"`
}

func (c *QueueCmd) Run(ctx *Context) error {
	route, err := queue.ParseRoute(c.Route)
	if err != nil {
		return err
	}
	account, err := ferry.Find(ctx.Dir, c.Account)
	if err != nil {
		return err
	}
	q, err := account.OpenQueue()
	if err != nil {
		return err
	}
	queued, skipped := q.Enqueue(route, c.IDs)
	if err := q.Flush(); err != nil {
		return err
	}
	fmt.Printf("%s: queued %d, skipped %d\n", account.Name, queued, skipped)
	return nil
}

type DequeueCmd struct {
	Account string   `short:"a" help:"account name prefix"`
	Route   string   `arg:"" help:"action to remove or undo"`
	IDs     []string `arg:"" help:"status ids, or staged names for post"`
}

func (c *DequeueCmd) Run(ctx *Context) error {
	route, err := queue.ParseRoute(c.Route)
	if err != nil {
		return err
	}
	account, err := ferry.Find(ctx.Dir, c.Account)
	if err != nil {
		return err
	}
	q, err := account.OpenQueue()
	if err != nil {
		return err
	}
	removed := q.Dequeue(route, c.IDs)
	if err := q.Flush(); err != nil {
		return err
	}
	fmt.Printf("%s: removed %d of %d\n", account.Name, removed, len(c.IDs))
	return nil
}

type ClearCmd struct {
	Account string `short:"a" help:"account name prefix"`
	Route   string `arg:"" help:"route to clear, with its inverse"`
}

func (c *ClearCmd) Run(ctx *Context) error {
	route, err := queue.ParseRoute(c.Route)
	if err != nil {
		return err
	}
	account, err := ferry.Find(ctx.Dir, c.Account)
	if err != nil {
		return err
	}
	q, err := account.OpenQueue()
	if err != nil {
		return err
	}
	q.Clear(route)
	return q.Flush()
}
