package query

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mediawiki-utilities/go-mwapi/internal/cmd/base"
	"github.com/mediawiki-utilities/go-mwapi/pkg/mwapi"
)

type Command struct {
	*base.Command

	flagConfig       string
	flagPost         bool
	flagContinuation bool
	flagLimit        int
}

func (c *Command) Synopsis() string {
	return "Run an action API query and print each response document"
}

func (c *Command) Help() string {
	return `Usage: mwapi query -config=config.hcl [options] key=value ...

  Runs one action API call and prints the response document as JSON.
  With -continuation, follows the server's continuation tokens and
  prints one document per batch.

  Parameters are given as key=value arguments. A bare key is sent as a
  presence-only flag; a value containing "|" is sent as a multi-value
  list.

  Example:

    mwapi query -config=wiki.hcl -continuation \
        action=query list=allpages aplimit=500

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet("query")
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file (required)")
	f.BoolVar(&c.flagPost, "post", false, "Send the request with POST instead of GET")
	f.BoolVar(&c.flagContinuation, "continuation", false, "Follow continuation tokens across batches")
	f.IntVar(&c.flagLimit, "limit", 0, "Stop after this many batches (0 for no bound)")
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagConfig == "" {
		c.UI.Error("missing required -config flag")
		return 1
	}

	params, err := parseParams(f.Args())
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	cfg, err := base.LoadConfig(c.flagConfig)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	cfg.Logger = c.Log

	session, err := mwapi.New(cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	method := http.MethodGet
	if c.flagPost {
		method = http.MethodPost
	}

	if !c.flagContinuation {
		doc, err := session.Request(ctx, method, params, nil)
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		return c.print(doc)
	}

	var it *mwapi.Iterator
	if c.flagPost {
		it = session.PostAll(params)
	} else {
		it = session.GetAll(params)
	}

	batches := 0
	for it.Next(ctx) {
		if code := c.print(it.Doc()); code != 0 {
			return code
		}
		batches++
		if c.flagLimit > 0 && batches >= c.flagLimit {
			return 0
		}
	}
	if err := it.Err(); err != nil {
		c.UI.Error(fmt.Sprintf("query failed after %d batches: %v", batches, err))
		return 1
	}
	return 0
}

func (c *Command) print(doc mwapi.Doc) int {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("error rendering response: %v", err))
		return 1
	}
	c.UI.Output(string(data))
	return 0
}

// parseParams converts key=value arguments into call parameters.
func parseParams(args []string) (mwapi.Params, error) {
	params := make(mwapi.Params, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid parameter %q", arg)
		}
		switch {
		case !found:
			params[key] = mwapi.Bool(true)
		case strings.Contains(value, "|"):
			params[key] = mwapi.List(strings.Split(value, "|")...)
		default:
			if n, err := strconv.Atoi(value); err == nil {
				params[key] = mwapi.Int(n)
			} else {
				params[key] = mwapi.String(value)
			}
		}
	}
	return params, nil
}
