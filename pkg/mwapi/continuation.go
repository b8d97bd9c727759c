package mwapi

import (
	"context"
)

type iterState int

const (
	iterPendingFirst iterState = iota
	iterHasMore
	iterExhausted
	iterFailed
)

// Iterator is a lazy sequence of response documents over a continued
// query. It advances scanner-style:
//
//	for it.Next(ctx) {
//		handle(it.Doc())
//	}
//	if err := it.Err(); err != nil { ... }
//
// A nil Err after the loop means the server stopped returning
// continuation tokens; a non-nil Err means a fetch failed mid-sequence.
// The two are never conflated. Once exhausted or failed, further Next
// calls return false without fetching; an iterator is not restartable.
type Iterator struct {
	session *Session
	method  string
	params  Params
	token   map[string]string
	state   iterState
	doc     Doc
	err     error
}

func newIterator(s *Session, method string, params Params) *Iterator {
	stripped, _ := stripContinuation(params)

	// Prime the first fetch with an empty continue parameter, unless the
	// caller supplied one of their own.
	token := map[string]string{}
	if _, ok := stripped["continue"]; !ok {
		token["continue"] = ""
	}

	return &Iterator{
		session: s,
		method:  method,
		params:  stripped,
		token:   token,
	}
}

// Next fetches the next batch. It is the only suspension point of an
// iteration; ctx cancellation abandons the in-flight fetch.
func (it *Iterator) Next(ctx context.Context) bool {
	switch it.state {
	case iterExhausted, iterFailed:
		it.doc = nil
		return false
	}

	doc, err := it.session.request(ctx, it.method, it.params, it.token)
	if err != nil {
		it.state = iterFailed
		it.err = err
		it.doc = nil
		return false
	}

	it.doc = doc
	if token, ok := continueToken(doc); ok {
		// Re-send all continue values in the next call.
		it.token = token
		it.state = iterHasMore
	} else {
		it.state = iterExhausted
	}
	return true
}

// Doc returns the document fetched by the last successful Next.
func (it *Iterator) Doc() Doc { return it.doc }

// Err returns the fetch failure that terminated the sequence, if any.
func (it *Iterator) Err() error {
	if it.state == iterFailed {
		return it.err
	}
	return nil
}

// Batch is one element of a streamed iteration: a document, or the
// single terminal error of the sequence.
type Batch struct {
	Doc Doc
	Err error
}

// Stream drains the iterator through a channel for select-driven
// consumers. The channel closes after the last batch; a failed fetch is
// delivered as the final batch with Err set. The Session is still
// single-caller: do not advance the iterator directly while streaming.
func (it *Iterator) Stream(ctx context.Context) <-chan Batch {
	out := make(chan Batch)
	go func() {
		defer close(out)
		for it.Next(ctx) {
			select {
			case out <- Batch{Doc: it.Doc()}:
			case <-ctx.Done():
				return
			}
		}
		if err := it.Err(); err != nil {
			select {
			case out <- Batch{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}
