package version

import (
	"github.com/mediawiki-utilities/go-mwapi/internal/cmd/base"
	buildversion "github.com/mediawiki-utilities/go-mwapi/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version"
}

func (c *Command) Help() string {
	return `Usage: mwapi version

  Prints the version of this build.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output("mwapi " + buildversion.Version)
	return 0
}
