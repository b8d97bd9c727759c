package base

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Command is the base type embedded by all CLI commands.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui
}

// FlagSet wraps flag.FlagSet with help rendering for command Help text.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet creates a flag set that reports errors through the caller
// instead of printing to stderr.
func NewFlagSet(name string) *FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	return &FlagSet{FlagSet: f}
}

// Help returns the rendered flag usage block.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("Flags:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "  -%s\n      %s\n", fl.Name, fl.Usage)
	})
	return b.String()
}
