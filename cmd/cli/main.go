package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/gatepass/gatepass/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Watch   commands.WatchCmd   `cmd:"" help:"Watch live dismissal events"`
		Scan    commands.ScanCmd    `cmd:"" help:"Record a credential scan at a gate"`
		Request commands.RequestCmd `cmd:"" help:"Request a pickup as a guardian"`
		Advance commands.AdvanceCmd `cmd:"" help:"Advance a dismissal to the next status"`
		Confirm commands.ConfirmCmd `cmd:"" help:"Confirm a completed dismissal"`
		Active  commands.ActiveCmd  `cmd:"" help:"List active dismissals"`
		Token   commands.TokenCmd   `cmd:"" help:"Generate a JWT token"`
		Debug   bool                `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
