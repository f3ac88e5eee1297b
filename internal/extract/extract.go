package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// jobIDFields is the ordered candidate list for job identifiers. The first
// present non-empty value wins, so the order is load-bearing.
var jobIDFields = []string{
	"request_id",
	"requestId",
	"session_id",
	"sessionId",
	"id",
	"job_id",
	"jobId",
}

// urlFields is the ordered candidate list for result/download URLs.
var urlFields = []string{
	"url",
	"download_url",
	"downloadUrl",
	"output_url",
	"outputUrl",
	"result_url",
}

// ExtractionError reports that no recognizable job identifier was found.
type ExtractionError struct {
	Fields []string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no job identifier in submit response (tried %s)", strings.Join(e.Fields, ", "))
}

// JobID pulls the job identifier out of a submit response. Top-level fields
// are tried first in priority order; when none match, each content item
// whose text parses as JSON is retried with the same list.
func JobID(payload map[string]any) (string, error) {
	if id := firstField(payload, jobIDFields); id != "" {
		return id, nil
	}
	for _, unwrapped := range unwrapContent(payload) {
		if id := firstField(unwrapped.object, jobIDFields); id != "" {
			return id, nil
		}
	}
	return "", &ExtractionError{Fields: append([]string(nil), jobIDFields...)}
}

// Status reads the job status from a poll response and returns it
// lower-cased, together with the unwrapped payload snapshot. The first
// content item whose text parses as JSON becomes the snapshot; its
// status, when present, overrides the top-level value. Later items are
// never consulted. A payload with neither status nor state yields
// "unknown".
func Status(payload map[string]any) (string, map[string]any) {
	status := statusField(payload)
	snapshot := payload
	for _, unwrapped := range unwrapContent(payload) {
		if unwrapped.object == nil {
			continue
		}
		snapshot = unwrapped.object
		if nested := statusField(unwrapped.object); nested != "" {
			status = nested
		}
		break
	}
	if status == "" {
		status = "unknown"
	}
	return strings.ToLower(status), snapshot
}

// URL resolves the result/download URL from a payload, if any. Absence is
// not an error at this layer.
func URL(payload map[string]any) (string, bool) {
	if u, ok := urlFromObject(payload); ok {
		return u, true
	}
	for _, unwrapped := range unwrapContent(payload) {
		if unwrapped.object != nil {
			if u, ok := urlFromObject(unwrapped.object); ok {
				return u, true
			}
			continue
		}
		// Item text was not JSON; a bare http(s) URL is accepted as-is.
		if strings.HasPrefix(unwrapped.text, "http") {
			return unwrapped.text, true
		}
	}
	return "", false
}

func urlFromObject(obj map[string]any) (string, bool) {
	if u := firstField(obj, urlFields); u != "" {
		return u, true
	}
	images, ok := obj["images"].([]any)
	if !ok || len(images) == 0 {
		return "", false
	}
	first, ok := images[0].(map[string]any)
	if !ok {
		return "", false
	}
	if u := stringValue(first["url"]); u != "" {
		return u, true
	}
	return "", false
}

func statusField(obj map[string]any) string {
	if s := stringValue(obj["status"]); s != "" {
		return s
	}
	return stringValue(obj["state"])
}

func firstField(obj map[string]any, fields []string) string {
	if obj == nil {
		return ""
	}
	for _, field := range fields {
		if value := stringValue(obj[field]); value != "" {
			return value
		}
	}
	return ""
}

// contentItem is one unwrapped entry of a payload's content list. object
// is non-nil when the item's text parsed as a JSON object; text always
// carries the trimmed raw string.
type contentItem struct {
	object map[string]any
	text   string
}

// unwrapContent walks the generic content-block wrapper some tool servers
// use: a "content" list of items whose "text" field may itself be a JSON
// document. Malformed entries are skipped, never reported.
func unwrapContent(payload map[string]any) []contentItem {
	list, ok := payload["content"].([]any)
	if !ok {
		return nil
	}
	items := make([]contentItem, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		text, ok := obj["text"].(string)
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			items = append(items, contentItem{object: parsed, text: text})
		} else {
			items = append(items, contentItem{text: text})
		}
	}
	return items
}

// stringValue renders a scalar payload value as a string. Identifiers show
// up as JSON strings or numbers depending on the backend; both are
// accepted. Composite values never match.
func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
