package login

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediawiki-utilities/go-mwapi/internal/cmd/base"
	"github.com/mediawiki-utilities/go-mwapi/pkg/mwapi"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "Log in and store the session cookies"
}

func (c *Command) Help() string {
	return `Usage: mwapi login -config=config.hcl

  Performs the login handshake interactively. When the handshake needs
  an additional step (captcha, two-factor token), the requested fields
  are prompted for. With cookie_file configured, the authenticated
  cookies are saved for later commands.

  Credentials can also be supplied through the MWAPI_USERNAME and
  MWAPI_PASSWORD environment variables.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet("login")
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL configuration file (required)")
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

	username, password, err := c.credentials()
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = session.Login(ctx, username, password)

	var interaction *mwapi.ClientInteractionError
	if errors.As(err, &interaction) {
		err = c.continueLogin(ctx, session, interaction)
	}
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	c.UI.Info(fmt.Sprintf("Logged in as %s", session.Username()))

	if err := session.SaveCookies(); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}

// continueLogin prompts for every field the server asked for and submits
// the follow-up step.
func (c *Command) continueLogin(ctx context.Context, session *mwapi.Session, interaction *mwapi.ClientInteractionError) error {
	c.UI.Info(interaction.Message)

	params := mwapi.Params{}
	for _, request := range interaction.Requests {
		fields, _ := request["fields"].(map[string]any)
		for name := range fields {
			value, err := c.UI.Ask(fmt.Sprintf("%s: ", name))
			if err != nil {
				return err
			}
			params[name] = mwapi.String(value)
		}
	}

	return session.ContinueLogin(ctx, interaction.LoginToken, params)
}

func (c *Command) credentials() (username, password string, err error) {
	username = os.Getenv("MWAPI_USERNAME")
	if username == "" {
		username, err = c.UI.Ask("Username: ")
		if err != nil {
			return "", "", err
		}
	}

	password = os.Getenv("MWAPI_PASSWORD")
	if password == "" {
		password, err = c.UI.AskSecret("Password: ")
		if err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}
