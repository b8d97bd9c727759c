package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/mediawiki-utilities/go-mwapi/internal/cmd/base"
	"github.com/mediawiki-utilities/go-mwapi/internal/cmd/commands/login"
	"github.com/mediawiki-utilities/go-mwapi/internal/cmd/commands/query"
	versioncmd "github.com/mediawiki-utilities/go-mwapi/internal/cmd/commands/version"
)

// Commands is the mapping of all available CLI commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := &base.Command{
		Log: log,
		UI:  ui,
	}

	Commands = map[string]cli.CommandFactory{
		"query": func() (cli.Command, error) {
			return &query.Command{Command: b}, nil
		},
		"login": func() (cli.Command, error) {
			return &login.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &versioncmd.Command{Command: b}, nil
		},
	}
}
