package main

import (
	"fmt"

	"github.com/davecheney/ferry/internal/ferry"
)

type ShowCmd struct {
	Account string `short:"a" help:"account name prefix"`
	What    string `arg:"" optional:"" enum:"queue,options,accounts" default:"queue" help:"what to show"`
}

func (c *ShowCmd) Run(ctx *Context) error {
	if c.What == "accounts" {
		names, err := ferry.Names(ctx.Dir)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}
	account, err := ferry.Find(ctx.Dir, c.Account)
	if err != nil {
		return err
	}
	if c.What == "options" {
		for _, line := range account.Options.All() {
			fmt.Println(line)
		}
		return nil
	}
	q, err := account.OpenQueue()
	if err != nil {
		return err
	}
	for _, e := range q.Entries() {
		fmt.Println(e)
	}
	return nil
}

type SetCmd struct {
	Account string `short:"a" help:"account name prefix"`
	Key     string `arg:"" help:"option name, eg. pull_home"`
	Value   string `arg:"" help:"option value"`
}

func (c *SetCmd) Run(ctx *Context) error {
	account, err := ferry.Find(ctx.Dir, c.Account)
	if err != nil {
		return err
	}
	account.Options.Set(c.Key, c.Value)
	return account.Options.Flush()
}
