package mwapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
)

// Doc is one decoded response envelope. Numbers are json.Number so that
// continuation token values round-trip without float conversion.
type Doc map[string]any

// WarningsPolicy controls how a response that carries a warnings
// descriptor is handled.
type WarningsPolicy int

const (
	// WarnLog logs each warning and returns the document unchanged.
	WarnLog WarningsPolicy = iota

	// WarnEmpty returns an empty document when the response carries only
	// warnings and no payload-bearing keys.
	WarnEmpty

	// WarnError surfaces the warnings as an error, one per module.
	WarnError
)

// mirrors python-mwapi's truncation of raw bodies in diagnostics.
const malformedSnippetLen = 350

type errorDescriptor struct {
	Code string `mapstructure:"code"`
	Info string `mapstructure:"info"`
}

// envelopeKeys are top-level keys that never carry payload.
var envelopeKeys = map[string]bool{
	"warnings":     true,
	"servedby":     true,
	"requestid":    true,
	"curtimestamp": true,
}

// interpret is the single chokepoint that turns a raw response body into
// a payload document or a classified error. No other component decodes
// raw JSON.
func interpret(body []byte, policy WarningsPolicy, logger hclog.Logger) (Doc, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var doc Doc
	if err := decoder.Decode(&doc); err != nil {
		return nil, &MalformedResponseError{Snippet: snippet(body), Err: err}
	}

	if raw, ok := doc["error"]; ok {
		var desc errorDescriptor
		if err := mapstructure.Decode(raw, &desc); err != nil {
			desc = errorDescriptor{Code: "unknown", Info: fmt.Sprint(raw)}
		}
		detail, _ := raw.(map[string]any)
		return nil, &APIError{Code: desc.Code, Info: desc.Info, Detail: detail}
	}

	if raw, ok := doc["warnings"]; ok {
		warnings, _ := raw.(map[string]any)
		switch policy {
		case WarnError:
			var result *multierror.Error
			for module, warning := range warnings {
				result = multierror.Append(result,
					fmt.Errorf("%s: %s", module, warningText(warning)))
			}
			return nil, result.ErrorOrNil()
		case WarnEmpty:
			if !hasPayload(doc) {
				return Doc{}, nil
			}
		default:
			for module, warning := range warnings {
				logger.Warn("query raised a warning",
					"module", module, "warning", warningText(warning))
			}
		}
	}

	return doc, nil
}

func hasPayload(doc Doc) bool {
	for key := range doc {
		if !envelopeKeys[key] {
			return true
		}
	}
	return false
}

func warningText(warning any) string {
	if m, ok := warning.(map[string]any); ok {
		if text, ok := m["*"].(string); ok {
			return text
		}
		if text, ok := m["warnings"].(string); ok {
			return text
		}
	}
	return fmt.Sprint(warning)
}

// continueToken extracts the opaque continuation descriptor, flattened to
// strings for re-encoding into the next request.
func continueToken(doc Doc) (map[string]string, bool) {
	raw, ok := doc["continue"]
	if !ok {
		return nil, false
	}
	descriptor, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	token := make(map[string]string, len(descriptor))
	for key, value := range descriptor {
		token[key] = fmt.Sprint(value)
	}
	return token, true
}

func snippet(body []byte) string {
	if len(body) > malformedSnippetLen {
		return string(body[:malformedSnippetLen])
	}
	return string(body)
}

// stringAt walks nested objects and returns the string at the given path.
func stringAt(doc Doc, path ...string) (string, bool) {
	var current any = map[string]any(doc)
	for _, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = object[key]
		if !ok {
			return "", false
		}
	}
	text, ok := current.(string)
	return text, ok
}
