package extraction

import "regexp"

// Package-level compiled intent patterns. These run as a cheap pre-pass on
// the participant's own words, so intent detection still works when the
// model omits the corresponding flag from its structured output.
var (
	editIntentRE = regexp.MustCompile(`(?i)\b(wrong|incorrect|mistake|typo|correct(ion)?|change|update|edit|fix)\b|` +
		`\b(actually|instead)\b.*\b(phone|number|name)\b|ပြင်|မှား`)

	stopIntentRE = regexp.MustCompile(`(?i)\b(stop|unsubscribe|not interested|no longer interested|don'?t (contact|message|text)|leave me alone)\b|` +
		`မလို|စိတ်မဝင်စား`)
)

// DetectEditIntent reports whether the message reads as a correction of
// previously given information.
func DetectEditIntent(message string) bool {
	return editIntentRE.MatchString(message)
}

// DetectStopIntent reports whether the message reads as a request to stop
// follow-up contact.
func DetectStopIntent(message string) bool {
	return stopIntentRE.MatchString(message)
}
