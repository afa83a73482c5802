package jsonrpc

import "encoding/json"

// UnmarshalParams decodes request params into the handler's typed structure.
// Absent params bind as an empty object. A decode failure is an
// invalid-params outcome.
func UnmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return InvalidParams()
	}
	return nil
}
