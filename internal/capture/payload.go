package capture

import (
	"bytes"
	"encoding/json"
	"strings"
)

const MultipartPlaceholder = "[multipart/form-data]"

// Payload turns a response body into the text that is logged for it.
// The bytes sent to the client are never affected.
func Payload(contentType string, body []byte) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/json"):
		return CompactJSON(body)
	case strings.Contains(ct, "text/plain"):
		return string(body)
	case strings.Contains(ct, "multipart/form-data"):
		return MultipartPlaceholder
	default:
		return ""
	}
}

// CompactJSON re-serializes body without insignificant whitespace. Bodies
// that are not valid JSON come back unchanged.
func CompactJSON(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var out bytes.Buffer
	if err := json.Compact(&out, body); err != nil {
		return string(body)
	}
	return out.String()
}

// PrettyJSON indents text when it is a JSON object or array.
func PrettyJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if !(strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) &&
		!(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		return text
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(trimmed), "", "  "); err != nil {
		return text
	}
	return out.String()
}
