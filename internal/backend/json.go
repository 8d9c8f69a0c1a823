package backend

import "github.com/tidwall/gjson"

// IsJSON reports whether payload is a well-formed JSON document
func IsJSON(payload []byte) bool {
	return len(payload) > 0 && gjson.ValidBytes(payload)
}
