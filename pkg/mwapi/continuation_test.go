package mwapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedServer serves a three-page query: the first two responses carry
// continuation tokens, the third does not.
func pagedServer(t *testing.T) (*httptest.Server, func() []url.Values) {
	t.Helper()

	var mu sync.Mutex
	var requests []url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		requests = append(requests, r.Form)
		mu.Unlock()

		switch r.Form.Get("apcontinue") {
		case "":
			writeJSON(w, `{"batchcomplete":"","query":{"allpages":[{"title":"Page 1"}]},`+
				`"continue":{"apcontinue":"a","continue":"-||"}}`)
		case "a":
			writeJSON(w, `{"batchcomplete":"","query":{"allpages":[{"title":"Page 2"}]},`+
				`"continue":{"apcontinue":"b","continue":"-||"}}`)
		default:
			writeJSON(w, `{"batchcomplete":"","query":{"allpages":[{"title":"Page 3"}]}}`)
		}
	}))

	return server, func() []url.Values {
		mu.Lock()
		defer mu.Unlock()
		return requests
	}
}

func TestIterator_ThreePages(t *testing.T) {
	server, recorded := pagedServer(t)
	defer server.Close()

	session := newTestSession(t, server.URL, nil)
	it := session.GetAll(Params{
		"action": String("query"),
		"list":   String("allpages"),
	})

	// Construction is lazy: no fetch before the first advance.
	assert.Empty(t, recorded())

	ctx := context.Background()
	var docs []Doc
	for it.Next(ctx) {
		docs = append(docs, it.Doc())
	}
	require.NoError(t, it.Err())

	assert.Len(t, docs, 3)
	requests := recorded()
	require.Len(t, requests, 3)

	// The first fetch is primed with an empty continue parameter.
	require.Contains(t, requests[0], "continue")
	assert.Equal(t, "", requests[0].Get("continue"))
	// The second and third fetches carry exactly the prior response's token.
	assert.Equal(t, "a", requests[1].Get("apcontinue"))
	assert.Equal(t, "b", requests[2].Get("apcontinue"))
	assert.Equal(t, "-||", requests[2].Get("continue"))
}

func TestIterator_ExhaustionIsIdempotent(t *testing.T) {
	server, recorded := pagedServer(t)
	defer server.Close()

	session := newTestSession(t, server.URL, nil)
	it := session.GetAll(Params{"action": String("query"), "list": String("allpages")})

	ctx := context.Background()
	count := 0
	for it.Next(ctx) {
		count++
	}
	require.Equal(t, 3, count)
	require.NoError(t, it.Err())

	// Re-advancing after exhaustion fetches nothing.
	assert.False(t, it.Next(ctx))
	assert.False(t, it.Next(ctx))
	assert.Nil(t, it.Doc())
	assert.NoError(t, it.Err())
	assert.Len(t, recorded(), 3)
}

func TestIterator_FailureSurfacesOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("apcontinue") == "" {
			writeJSON(w, `{"query":{"allpages":[{"title":"Page 1"}]},`+
				`"continue":{"apcontinue":"a","continue":"-||"}}`)
			return
		}
		writeJSON(w, `{"error":{"code":"badcontinue","info":"Invalid continue parameter"}}`)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL, nil)
	it := session.GetAll(Params{"action": String("query"), "list": String("allpages")})

	ctx := context.Background()
	require.True(t, it.Next(ctx))
	assert.Contains(t, it.Doc(), "query")

	require.False(t, it.Next(ctx))
	var apiErr *APIError
	require.True(t, errors.As(it.Err(), &apiErr))
	assert.Equal(t, "badcontinue", apiErr.Code)
	assert.Nil(t, it.Doc())

	// Terminal: no further fetches, the error stays observable.
	assert.False(t, it.Next(ctx))
	require.True(t, errors.As(it.Err(), &apiErr))
}

func TestIterator_Stream(t *testing.T) {
	server, _ := pagedServer(t)
	defer server.Close()

	session := newTestSession(t, server.URL, nil)
	it := session.GetAll(Params{"action": String("query"), "list": String("allpages")})

	var docs []Doc
	for batch := range it.Stream(context.Background()) {
		require.NoError(t, batch.Err)
		docs = append(docs, batch.Doc)
	}
	assert.Len(t, docs, 3)
}

func TestIterator_StreamDeliversTerminalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"error":{"code":"badparam","info":"Unrecognized parameter"}}`)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL, nil)
	it := session.GetAll(Params{"action": String("query")})

	var batches []Batch
	for batch := range it.Stream(context.Background()) {
		batches = append(batches, batch)
	}
	require.Len(t, batches, 1)

	var apiErr *APIError
	require.True(t, errors.As(batches[0].Err, &apiErr))
	assert.Equal(t, "badparam", apiErr.Code)
}

func TestIterator_StripsContinuationFlag(t *testing.T) {
	var sawFlag bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if _, ok := r.Form[ParamContinuation]; ok {
			sawFlag = true
		}
		writeJSON(w, `{"query":{}}`)
	}))
	defer server.Close()

	session := newTestSession(t, server.URL, nil)
	it := session.GetAll(Params{
		"action":          String("query"),
		ParamContinuation: Bool(true),
	})

	require.True(t, it.Next(context.Background()))
	require.NoError(t, it.Err())
	assert.False(t, sawFlag)
}
