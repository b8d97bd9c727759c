package mwapi

import (
	"net/http"

	"golang.org/x/oauth2"
)

// oauth2Transport wraps the base round tripper so that every request
// carries the bearer token of an owner-only OAuth2 consumer.
func oauth2Transport(base http.RoundTripper, token *oauth2.Token) http.RoundTripper {
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(token),
		Base:   base,
	}
}
