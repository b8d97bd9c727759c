// Package mwapi provides a client session for MediaWiki-style action APIs.
//
// # Overview
//
// A Session owns a persistent cookie-authenticated HTTP connection to a
// single API endpoint and exposes Get/Post calls that encode structured
// parameters, classify API-level error envelopes separately from transport
// failures, and retry transient faults with exponential backoff. Paginated
// queries are consumed through a lazy continuation iterator that merges
// each response's continuation token into the next request.
//
// # Example
//
//	cfg := &mwapi.Config{
//		Host:      "https://en.wikipedia.org",
//		UserAgent: "my-tool/1.0 (ops@example.org)",
//	}
//	session, err := mwapi.New(cfg)
//	if err != nil {
//		return err
//	}
//
//	it := session.GetAll(mwapi.Params{
//		"action": mwapi.String("query"),
//		"list":   mwapi.String("allpages"),
//	})
//	for it.Next(ctx) {
//		handle(it.Doc())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// # Error Handling
//
// Failures are classified as *TransportError (connection, DNS, timeout,
// non-2xx status), *MalformedResponseError (body was not JSON),
// *APIError (the server returned an error envelope), *LoginError or
// *ClientInteractionError (authentication handshake outcomes). Transport
// errors and a configurable set of API error codes (rate limiting by
// default) are retried; everything else surfaces immediately.
//
// # Concurrency
//
// A Session is not safe for concurrent use: retry state and the login
// state transitions are designed for a single caller. Use one Session per
// goroutine, or guard access externally. Iterator.Stream provides a
// channel surface for select-driven consumers without changing that rule.
package mwapi
