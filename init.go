package main

import (
	"fmt"

	"github.com/davecheney/ferry/internal/ferry"
)

type InitCmd struct {
	Name  string `arg:"" help:"name for the account directory"`
	URL   string `required:"" help:"base URL of the instance, eg. https://mastodon.social"`
	Token string `required:"" help:"access token for the account"`
}

func (i *InitCmd) Run(ctx *Context) error {
	account, err := ferry.Create(ctx.Dir, i.Name, i.URL, i.Token)
	if err != nil {
		return err
	}
	fmt.Printf("created %s for %s\n", account.Dir, account.BaseURL())
	return nil
}
