package base

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/mediawiki-utilities/go-mwapi/pkg/mwapi"
)

// FileConfig is the CLI configuration file schema (HCL).
//
// Example:
//
//	host        = "https://en.wikipedia.org"
//	user_agent  = "mwapi-cli/0.1 (ops@example.org)"
//	timeout     = "30s"
//	max_retries = 3
//	cookie_file = "~/.cache/mwapi/cookies.json"
type FileConfig struct {
	Host          string `hcl:"host"`
	UserAgent     string `hcl:"user_agent"`
	Origin        string `hcl:"origin,optional"`
	APIPath       string `hcl:"api_path,optional"`
	FormatVersion int    `hcl:"format_version,optional"`
	Timeout       string `hcl:"timeout,optional"`
	MaxRetries    int    `hcl:"max_retries,optional"`
	RetryDelay    string `hcl:"retry_delay,optional"`
	CookieFile    string `hcl:"cookie_file,optional"`
}

// LoadConfig reads an HCL configuration file and converts it to a
// session configuration.
func LoadConfig(path string) (*mwapi.Config, error) {
	var file FileConfig
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}

	cfg := &mwapi.Config{
		Host:          file.Host,
		UserAgent:     file.UserAgent,
		Origin:        file.Origin,
		APIPath:       file.APIPath,
		FormatVersion: file.FormatVersion,
		MaxRetries:    file.MaxRetries,
		CookieFile:    file.CookieFile,
	}

	if file.Timeout != "" {
		timeout, err := time.ParseDuration(file.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", file.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if file.RetryDelay != "" {
		delay, err := time.ParseDuration(file.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid retry_delay %q: %w", file.RetryDelay, err)
		}
		cfg.RetryDelay = delay
	}

	return cfg, nil
}
