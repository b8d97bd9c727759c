package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediawiki-utilities/go-mwapi/pkg/mwapi"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{
		"action=query",
		"list=allpages",
		"aplimit=500",
		"rvprop=ids|timestamp",
		"redirects",
	})
	require.NoError(t, err)

	assert.Equal(t, mwapi.Params{
		"action":    mwapi.String("query"),
		"list":      mwapi.String("allpages"),
		"aplimit":   mwapi.Int(500),
		"rvprop":    mwapi.List("ids", "timestamp"),
		"redirects": mwapi.Bool(true),
	}, params)
}

func TestParseParams_EmptyKey(t *testing.T) {
	_, err := parseParams([]string{"=value"})
	assert.Error(t, err)
}
