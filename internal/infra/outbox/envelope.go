package outbox

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	appoutbox "venuehire/internal/app/outbox"
)

const defaultSource = "app://venuehire"

// Envelope wraps a record as a CloudEvents 1.0 JSON message and returns it with
// the transport headers.
func Envelope(rec appoutbox.EventRecord, source string) ([]byte, map[string]string, error) {
	if source == "" {
		source = defaultSource
	}
	data := map[string]any{}
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &data); err != nil {
			return nil, nil, err
		}
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            rec.Name + ".v1",
		"source":          source,
		"subject":         rec.AggregateID,
		"time":            rec.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := rec.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce-id":        rec.ID,
	}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// Topic maps an event name such as "booking.requested" to
// "<prefix>booking.events.v1".
func Topic(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}
