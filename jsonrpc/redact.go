package jsonrpc

import "encoding/json"

const maskToken = "****"

// Sensitive describes which parameters of a method carry secrets. It drives
// log redaction only; wire payloads are never touched.
type Sensitive struct {
	all  bool
	keys map[string]struct{}
}

// SensitiveNone marks no parameter as sensitive.
func SensitiveNone() Sensitive { return Sensitive{} }

// SensitiveAll marks every parameter as sensitive.
func SensitiveAll() Sensitive { return Sensitive{all: true} }

// SensitiveKeys marks the named parameters as sensitive.
func SensitiveKeys(names ...string) Sensitive {
	keys := make(map[string]struct{}, len(names))
	for _, name := range names {
		keys[name] = struct{}{}
	}
	return Sensitive{keys: keys}
}

// redactParams renders params for logging with sensitive values replaced by
// the mask token. Params that are not a JSON object are rendered verbatim.
func redactParams(params json.RawMessage, sensitive Sensitive) string {
	if len(params) == 0 {
		return "{}"
	}
	if !sensitive.all && len(sensitive.keys) == 0 {
		return string(params)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(params, &obj); err != nil {
		return string(params)
	}
	masked := make(map[string]any, len(obj))
	for k, v := range obj {
		if sensitive.all {
			masked[k] = maskToken
			continue
		}
		if _, ok := sensitive.keys[k]; ok {
			masked[k] = maskToken
		} else {
			masked[k] = v
		}
	}
	out, err := json.Marshal(masked)
	if err != nil {
		return string(params)
	}
	return string(out)
}

// redactValue is the outbound-params counterpart of redactParams: it accepts
// the Go value about to be serialized rather than raw JSON.
func redactValue(params any, sensitive Sensitive) string {
	data, err := json.Marshal(params)
	if err != nil {
		return "<unencodable>"
	}
	return redactParams(data, sensitive)
}
