package stream

import (
	"strings"

	"github.com/tidwall/gjson"
)

// metadataKeys are the top-level fields of the progress envelopes that some
// backends interleave with summary text.
var metadataKeys = []string{
	"stage",
	"message",
	"progress",
	"count",
	"compression",
	"compression_achieved",
	"compression_target",
	"target_compression",
	"quality",
	"quality_score",
	"text_type",
}

// IsMetadata reports whether a content payload is a progress/telemetry frame
// that must not reach the rendered summary.
//
// Only payloads that look like a JSON object are candidates. A candidate is
// suppressed when it parses as an object carrying one of the known envelope
// keys; anything else, including brace-wrapped prose, stays content.
func IsMetadata(payload string) bool {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return true
	}
	if !strings.HasPrefix(trimmed, "{") && !strings.HasSuffix(trimmed, "}") {
		return false
	}
	if !gjson.Valid(trimmed) {
		return false
	}

	obj := gjson.Parse(trimmed)
	if !obj.IsObject() {
		return false
	}
	for _, key := range metadataKeys {
		if obj.Get(key).Exists() {
			return true
		}
	}
	return false
}
