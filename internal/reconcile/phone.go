package reconcile

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultPhoneRegion is used to parse numbers given without a country code.
const defaultPhoneRegion = "MM"

// NormalizePhone prepares an extracted phone number for storage. The digits
// are kept exactly as the participant typed them; only surrounding whitespace
// and a spreadsheet quoting apostrophe are removed.
func NormalizePhone(raw string) string {
	p := strings.TrimSpace(raw)
	p = strings.TrimPrefix(p, "'")
	return p
}

// PlausiblePhone reports whether raw parses as a possible phone number.
// It is advisory only: implausible numbers are still stored verbatim, the
// flag merely steers the conversation toward asking again.
func PlausiblePhone(raw string) bool {
	num, err := phonenumbers.Parse(NormalizePhone(raw), defaultPhoneRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(num)
}

// FormatPhoneDisplay renders a phone number for human-facing summaries.
// Falls back to the stored text when the number cannot be parsed.
func FormatPhoneDisplay(raw string) string {
	num, err := phonenumbers.Parse(NormalizePhone(raw), defaultPhoneRegion)
	if err != nil {
		return NormalizePhone(raw)
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}
