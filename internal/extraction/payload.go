// Package extraction turns free-form chat text and model output into
// structured lead patches.
//
// The model's output contract is treated as untrusted text that may contain
// an embedded structured payload: any malformation yields an explicit
// "no data" result, never an error that would abort the turn.
package extraction

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// dataPayloadRE matches the <data>...</data> tag the reply model is
// instructed to append to every answer.
var dataPayloadRE = regexp.MustCompile(`(?s)<data>(.*?)</data>`)

// rawPayload mirrors the JSON shape the model is asked to emit inside the
// data tag. All fields are free-form strings at this stage.
type rawPayload struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Service      string `json:"service"`
	Status       string `json:"status"`
	StopFollowup bool   `json:"stop_followup"`
	EditIntent   bool   `json:"edit_intent"`
}

// ParseDataPayload extracts a lead patch from an embedded <data> payload in
// model output. The second return value reports whether usable structured
// data was found; malformed JSON, a missing tag, or a payload of only
// sentinel values all return (empty, false).
func ParseDataPayload(text string) (models.LeadPatch, bool) {
	match := dataPayloadRE.FindStringSubmatch(text)
	if match == nil {
		return models.LeadPatch{}, false
	}

	jsonStr := extractJSONObject(match[1])
	if jsonStr == "" {
		slog.Debug("ParseDataPayload: data tag without JSON object")
		return models.LeadPatch{}, false
	}

	var raw rawPayload
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		slog.Warn("ParseDataPayload: malformed payload JSON discarded", "error", err)
		return models.LeadPatch{}, false
	}

	patch := patchFromRaw(raw)
	if patch.IsEmpty() && !patch.EditIntent {
		return models.LeadPatch{}, false
	}
	return patch, true
}

// StripDataPayload removes any <data> payloads from model output so they
// never reach the participant.
func StripDataPayload(text string) string {
	return strings.TrimSpace(dataPayloadRE.ReplaceAllString(text, ""))
}

// ParseToolArguments parses the JSON arguments of a record_lead_details
// tool call into a lead patch. Malformed arguments yield an empty patch.
func ParseToolArguments(arguments string) (models.LeadPatch, bool) {
	var raw rawPayload
	if err := json.Unmarshal([]byte(arguments), &raw); err != nil {
		slog.Warn("ParseToolArguments: malformed tool arguments discarded", "error", err)
		return models.LeadPatch{}, false
	}
	patch := patchFromRaw(raw)
	if patch.IsEmpty() && !patch.EditIntent {
		return models.LeadPatch{}, false
	}
	return patch, true
}

// patchFromRaw normalizes a raw payload into a LeadPatch, dropping sentinel
// values so an "unknown" from the model can never erase stored data.
func patchFromRaw(raw rawPayload) models.LeadPatch {
	patch := models.LeadPatch{
		Name:         normalizeField(raw.Name),
		Phone:        normalizeField(raw.Phone),
		Service:      normalizeField(raw.Service),
		StopFollowup: raw.StopFollowup,
		EditIntent:   raw.EditIntent,
	}
	if status, ok := models.ParseLeadStatus(raw.Status); ok {
		patch.Status = status
	}
	return patch
}

// normalizeField trims a field value and maps extractor sentinels for
// "nothing found" to the empty string.
func normalizeField(value string) string {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(trimmed) {
	case "", "n/a", "na", "none", "null", "unknown", "-":
		return ""
	}
	return trimmed
}

// extractJSONObject returns the outermost {...} span in s, or "" when no
// balanced object candidate exists. The model sometimes wraps the payload
// in markdown fences or stray prose; everything outside the braces is noise.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
