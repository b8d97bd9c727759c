package mwapi

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ParamContinuation is a control flag consumed by the Session before
// encoding. It is never sent over the wire: pass it (or use GetAll /
// PostAll directly) to request a continuation iterator.
const ParamContinuation = "continuation"

// Multi-value parameters are joined with "|". When an element itself
// contains a pipe, the API's alternative separator (U+001F) is used and
// the joined value is prefixed with it.
const (
	listSeparator     = "|"
	listAltSeparator  = "\x1f"
	contentTypeForm   = "application/x-www-form-urlencoded"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindList
	kindBlob
)

// Value is one call parameter. The permitted kinds are string, integer,
// boolean, list-of-string, and binary blob; each has a constructor and
// there is no other way to build one.
type Value struct {
	kind valueKind
	str  string
	num  int
	flag bool
	list []string
	blob []byte
	name string
}

// String builds a string-valued parameter. The zero Value is String("").
func String(s string) Value { return Value{kind: kindString, str: s} }

// Int builds an integer-valued parameter.
func Int(i int) Value { return Value{kind: kindInt, num: i} }

// Bool builds a presence-only flag: true is encoded as an empty value,
// false is omitted from the encoded request entirely.
func Bool(b bool) Value { return Value{kind: kindBool, flag: b} }

// List builds a multi-value parameter, pipe-joined on the wire.
func List(items ...string) Value { return Value{kind: kindList, list: items} }

// Blob builds a binary file parameter. Any blob in a parameter set forces
// multipart encoding for the whole request.
func Blob(filename string, data []byte) Value {
	return Value{kind: kindBlob, blob: data, name: filename}
}

// Params is a set of call parameters keyed by name.
type Params map[string]Value

// wire returns the encoded form of a non-blob value and whether it should
// be present at all (false booleans are dropped).
func (v Value) wire() (string, bool) {
	switch v.kind {
	case kindString:
		return v.str, true
	case kindInt:
		return strconv.Itoa(v.num), true
	case kindBool:
		return "", v.flag
	case kindList:
		return joinList(v.list), true
	}
	return "", false
}

func joinList(items []string) string {
	for _, item := range items {
		if strings.Contains(item, listSeparator) {
			return listAltSeparator + strings.Join(items, listAltSeparator)
		}
	}
	return strings.Join(items, listSeparator)
}

// EncodedRequest is the wire form of one call: a query string for GET, a
// body with its content type for POST. Multipart is set when any blob
// parameter forced multipart encoding.
type EncodedRequest struct {
	Query       string
	Body        []byte
	ContentType string
	Multipart   bool
}

// encodeRequest normalizes params into an EncodedRequest. Entries in
// extra overwrite same-named params; continuation tokens and the
// format/formatversion defaults are merged through it.
func encodeRequest(params Params, extra map[string]string) (*EncodedRequest, error) {
	fields := make(map[string]string, len(params)+len(extra))
	blobs := make(map[string]Value)

	for key, value := range params {
		if key == ParamContinuation {
			return nil, fmt.Errorf("reserved parameter %q must not reach the encoder", key)
		}
		if value.kind == kindBlob {
			blobs[key] = value
			continue
		}
		encoded, present := value.wire()
		if !present {
			continue
		}
		fields[key] = encoded
	}
	for key, value := range extra {
		fields[key] = value
	}

	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	query := values.Encode()

	if len(blobs) == 0 {
		return &EncodedRequest{
			Query:       query,
			Body:        []byte(query),
			ContentType: contentTypeForm,
		}, nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, key := range sortedKeys(fields) {
		if err := writer.WriteField(key, fields[key]); err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", key, err)
		}
	}
	for _, key := range sortedKeys(blobs) {
		blob := blobs[key]
		part, err := writer.CreateFormFile(key, blob.name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode file %q: %w", key, err)
		}
		if _, err := part.Write(blob.blob); err != nil {
			return nil, fmt.Errorf("failed to encode file %q: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return &EncodedRequest{
		Query:       query,
		Body:        buf.Bytes(),
		ContentType: writer.FormDataContentType(),
		Multipart:   true,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
