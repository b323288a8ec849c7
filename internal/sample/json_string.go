package sample

import "encoding/json"

// jsonUnmarshalString decodes a raw JSON string literal (with its
// surrounding quotes) into a plain Go string.
func jsonUnmarshalString(raw []byte, out *string) error {
	return json.Unmarshal(raw, out)
}
